// Package assembler merges the staged wizard data into the single
// submission record handed to the persistence layer, materializing
// attachments through the file sink on the way.
package assembler

import (
	"strings"
	"time"

	"github.com/bmedtech/startup-intake/internal/models"
	"github.com/bmedtech/startup-intake/internal/questionnaire"
	"github.com/bmedtech/startup-intake/internal/storage"
)

const (
	folderStamp    = "20060102_1504"
	recordStamp    = "2006-01-02 15:04:05"
	submissionsDir = "submissions"
)

type Assembler struct {
	sink     storage.FileSink
	resolver *questionnaire.Resolver
	baseDir  string
	now      func() time.Time
}

// New builds an assembler storing attachments under baseDir. now is
// injectable for tests; nil means wall clock.
func New(sink storage.FileSink, resolver *questionnaire.Resolver, baseDir string, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{sink: sink, resolver: resolver, baseDir: baseDir, now: now}
}

// FolderName derives the per-submission storage folder from the normalized
// startup name and a minute-granular timestamp. Two submissions from the
// same startup within the same minute share a folder; last write wins at
// the file level.
func FolderName(startupName string, at time.Time) string {
	clean := strings.ToLower(strings.ReplaceAll(startupName, " ", "_"))
	return submissionsDir + "/" + clean + "_" + at.Format(folderStamp)
}

// Assemble builds the final record: flat general and checklist fields at
// the top level, specific answers nested under one mapping, every uploaded
// file replaced by its stored reference. A sink failure on one attachment
// does not stop the others; failed filenames are recorded on the record.
func (a *Assembler) Assemble(category string, general models.GeneralInfo, checklist models.TechChecklist, answers map[string]any, uploads []models.Upload) *models.Submission {
	at := a.now()
	folder := FolderName(general.StartupName, at)
	destination := folder
	if a.baseDir != "" {
		destination = a.baseDir + "/" + folder
	}

	specific := a.resolver.Prune(category, answers)
	fileFields := make(map[string]bool)
	for _, k := range a.resolver.FileFields(category) {
		fileFields[k] = true
	}

	var refs []models.AttachmentRef
	var failed []string
	for _, up := range uploads {
		if len(up.Data) == 0 {
			continue
		}
		path, err := a.sink.Store(up.Data, up.FileName, destination)
		if err != nil {
			failed = append(failed, up.FileName)
			continue
		}
		refs = append(refs, models.AttachmentRef{
			Field:      up.Field,
			FileName:   up.FileName,
			StoredPath: path,
		})
		// A specific file question keeps only the name reference in the
		// answers mapping, never the file object itself.
		if fileFields[up.Field] {
			specific[up.Field+"_name"] = up.FileName
		}
	}

	return &models.Submission{
		Timestamp:     at.Format(recordStamp),
		GeneralInfo:   general,
		Category:      category,
		TechChecklist: checklist,
		FolderPath:    folder,
		Attachments:   refs,
		FailedUploads: failed,
		SpecificData:  specific,
	}
}
