package assessment

import (
	"strings"

	"medical-assessment/internal/catalog"
)

type SymptomMatch struct {
	SymptomID      string `json:"symptom_id"`
	Label          string `json:"label"`
	MatchedKeyword string `json:"matched_keyword"`
	DefaultUrgency string `json:"default_urgency"`
}

// Detector matches a chief complaint against decision-tree keywords.
type Detector struct {
	symptoms []catalog.Symptom
}

func NewDetector(c *catalog.Catalog) *Detector {
	return &Detector{symptoms: c.Symptoms()}
}

// Detect returns the first symptom, in catalog order, with a keyword that is
// a substring of the lower-cased trimmed text. Keywords are tried in catalog
// order and the first hit wins; there is no scoring and no word-boundary
// check ("ear" matches "weary").
func (d *Detector) Detect(text string) *SymptomMatch {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	for _, s := range d.symptoms {
		for _, kw := range s.Keywords {
			k := strings.ToLower(kw)
			if k == "" {
				continue
			}
			if strings.Contains(text, k) {
				return &SymptomMatch{
					SymptomID:      s.ID,
					Label:          s.Label,
					MatchedKeyword: kw,
					DefaultUrgency: s.DefaultUrgency,
				}
			}
		}
	}
	return nil
}
