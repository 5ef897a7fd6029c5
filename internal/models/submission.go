package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// GeneralInfo carries the phase-1 identity and classification answers.
// ManualCategory is wizard input only: it is consumed when the applicant
// picks the unlisted-niche sentinel and never persisted on its own.
type GeneralInfo struct {
	StartupName    string `json:"startup_name"`
	ProductName    string `json:"product_name"`
	Niche          string `json:"niche"`
	FounderCEO     string `json:"founder_ceo"`
	FounderCTO     string `json:"founder_cto"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	CNPJ           string `json:"cnpj"`
	Website        string `json:"website"`
	StartDate      string `json:"start_date"`
	Description    string `json:"description"`
	ManualCategory string `json:"-"`
}

// TechChecklist is the general regulatory and technical checklist,
// collected in phase 2 regardless of category.
type TechChecklist struct {
	AnvisaStatus string `json:"tech_anvisa_status"`
	AnvisaNumber string `json:"tech_anvisa_num"`
	LGPD         bool   `json:"tech_lgpd"`
	Cloud        bool   `json:"tech_cloud"`
	ISO          bool   `json:"tech_iso"`
}

// Upload is an inbound attachment as handed over by the hosting layer:
// bytes plus original filename, already transport-validated.
type Upload struct {
	Field    string
	FileName string
	Data     []byte
}

// AttachmentRef is the persisted form of an upload. Raw bytes never enter
// a persisted record; only the stored path and original filename do.
type AttachmentRef struct {
	Field      string `json:"field"`
	FileName   string `json:"file_name"`
	StoredPath string `json:"stored_path"`
}

// Submission is the immutable aggregate record for one applicant. It is
// assembled once at final submission time and never updated afterwards.
type Submission struct {
	Timestamp string `json:"timestamp"`
	GeneralInfo
	Category string `json:"cluster_macro"`
	TechChecklist
	FolderPath    string          `json:"folder_path"`
	Attachments   []AttachmentRef `json:"attachments,omitempty"`
	FailedUploads []string        `json:"failed_uploads,omitempty"`
	SpecificData  map[string]any  `json:"specific_data"`
}

// Flatten merges the nested specific-answers mapping into the top level so
// specific keys become ordinary tabular columns. Keys come back in a
// deterministic order: the fixed record columns first, then the specific
// keys sorted. Non-scalar values are JSON-encoded into their cell.
func (s *Submission) Flatten() ([]string, map[string]any) {
	keys := []string{
		"timestamp", "startup_name", "product_name", "niche", "cluster_macro",
		"founder_ceo", "founder_cto", "email", "phone", "cnpj", "website",
		"start_date", "description",
		"tech_anvisa_status", "tech_anvisa_num", "tech_lgpd", "tech_cloud", "tech_iso",
		"folder_path",
	}
	row := map[string]any{
		"timestamp":          s.Timestamp,
		"startup_name":       s.StartupName,
		"product_name":       s.ProductName,
		"niche":              s.Niche,
		"cluster_macro":      s.Category,
		"founder_ceo":        s.FounderCEO,
		"founder_cto":        s.FounderCTO,
		"email":              s.Email,
		"phone":              s.Phone,
		"cnpj":               s.CNPJ,
		"website":            s.Website,
		"start_date":         s.StartDate,
		"description":        s.Description,
		"tech_anvisa_status": s.AnvisaStatus,
		"tech_anvisa_num":    s.AnvisaNumber,
		"tech_lgpd":          s.LGPD,
		"tech_cloud":         s.Cloud,
		"tech_iso":           s.ISO,
		"folder_path":        s.FolderPath,
	}
	if len(s.Attachments) > 0 {
		paths := make([]string, 0, len(s.Attachments))
		for _, a := range s.Attachments {
			paths = append(paths, a.StoredPath)
		}
		keys = append(keys, "attachments")
		row["attachments"] = strings.Join(paths, "; ")
	}
	if len(s.FailedUploads) > 0 {
		keys = append(keys, "failed_uploads")
		row["failed_uploads"] = strings.Join(s.FailedUploads, "; ")
	}
	for _, k := range sortedKeys(s.SpecificData) {
		keys = append(keys, k)
		row[k] = cellValue(s.SpecificData[k])
	}
	return keys, row
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cellValue(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int64, float64:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
