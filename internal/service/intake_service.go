package service

import (
	"log"

	"github.com/bmedtech/startup-intake/internal/assembler"
	"github.com/bmedtech/startup-intake/internal/models"
	"github.com/bmedtech/startup-intake/internal/storage"
	"github.com/bmedtech/startup-intake/internal/taxonomy"
)

// IntakeService assembles completed intakes and performs the dual write:
// append-only log plus categorized tabular store. It implements
// wizard.Recorder.
type IntakeService struct {
	tax *taxonomy.Taxonomy
	asm *assembler.Assembler
	log *storage.LogStore
	db  *storage.ExcelStore
}

func NewIntakeService(tax *taxonomy.Taxonomy, asm *assembler.Assembler, logStore *storage.LogStore, db *storage.ExcelStore) *IntakeService {
	return &IntakeService{tax: tax, asm: asm, log: logStore, db: db}
}

// Record builds the submission record and attempts both writers. Each
// writer's outcome is reported independently; a failure is logged and
// returned but never rolls back the other writer.
func (s *IntakeService) Record(category string, general models.GeneralInfo, checklist models.TechChecklist, answers map[string]any, uploads []models.Upload) (*models.Submission, storage.Report) {
	sub := s.asm.Assemble(category, general, checklist, answers, uploads)
	for _, name := range sub.FailedUploads {
		log.Printf("Warning: attachment %s failed for %s", name, sub.StartupName)
	}

	var report storage.Report
	report.LogErr = s.log.Append(sub)
	if report.LogErr != nil {
		log.Printf("Warning: log write failed for %s: %v", sub.StartupName, report.LogErr)
	}

	keys, row := sub.Flatten()
	report.TabularErr = s.db.Append(sub.Category, keys, row)
	if report.TabularErr != nil {
		log.Printf("Warning: tabular write failed for %s: %v", sub.StartupName, report.TabularErr)
	}
	return sub, report
}

// CategoryStat is one dashboard line: a category and its persisted rows.
type CategoryStat struct {
	Category    string `json:"category"`
	Submissions int    `json:"submissions"`
}

// Dashboard aggregates per-category tabular counts plus the log total.
func (s *IntakeService) Dashboard() (total int, stats []CategoryStat, err error) {
	total, err = s.log.Count()
	if err != nil {
		return 0, nil, err
	}
	names := append(s.tax.CategoryNames(), storage.FallbackSheet)
	stats = make([]CategoryStat, 0, len(names))
	for _, name := range names {
		n, err := s.db.RowCount(name)
		if err != nil {
			return 0, nil, err
		}
		stats = append(stats, CategoryStat{Category: name, Submissions: n})
	}
	return total, stats, nil
}

// Recent returns the latest persisted submissions from the log.
func (s *IntakeService) Recent(limit int) ([]models.Submission, error) {
	return s.log.Recent(limit)
}
