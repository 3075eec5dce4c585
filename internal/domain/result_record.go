// Result cache records and the derivations that produce them from the raw
// ML-backend response.
//
// A ResultRecord is the flattened, UI-facing representation of a completed
// screening outcome. History, aggregate stats, and dashboard views all read
// this list; it is kept deliberately distinct from the formal
// Screening/ScreeningResult pair (see DESIGN.md).
package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// VerdictAutistic is the backend verdict string that maps to high risk.
// Any other verdict maps to low risk.
const VerdictAutistic = "Autistic Syndrome"

// ResultRecord is one entry of the per-user result cache. ChildID is stored
// as a string but numeric and string forms of the same id are treated as
// equal everywhere (both appear in historical data).
type ResultRecord struct {
	ID                 int64                                  `json:"id"                  gorm:"primaryKey;autoIncrement:false"` // unix-ms based
	UserID             string                                 `json:"userId"              gorm:"type:varchar(64);index:idx_result_owner"`
	ChildID            string                                 `json:"childId"             gorm:"type:varchar(64);index"`
	ChildName          string                                 `json:"childName"           gorm:"type:varchar(255)"`
	Date               string                                 `json:"date"                gorm:"type:varchar(10)"` // YYYY-MM-DD
	Type               string                                 `json:"type"                gorm:"type:varchar(64)"`
	Risk               string                                 `json:"risk"                gorm:"type:varchar(16)"`
	Score              int                                    `json:"score"`
	Duration           string                                 `json:"duration"            gorm:"type:varchar(32)"` // formatted, e.g. "1.5 minutes"
	Verdict            string                                 `json:"verdict"             gorm:"type:varchar(64)"`
	Confidence         float64                                `json:"confidence"`
	ModelProbs         datatypes.JSONType[map[string]float64] `json:"modelProbs"`
	SocialAttention    int                                    `json:"socialAttention"`
	NonSocialAttention int                                    `json:"nonSocialAttention"`
	Improvement        float64                                `json:"improvement"`
	PDFReportURL       string                                 `json:"pdfReportUrl"        gorm:"type:varchar(512)"`
	Timestamp          time.Time                              `json:"timestamp"`
}

// TableName returns the database table name for ResultRecord.
func (ResultRecord) TableName() string { return "result_records" }

// MatchesChild reports whether the record belongs to the given child id,
// treating string and numeric representations of the same id as equal.
func (r ResultRecord) MatchesChild(childID string) bool {
	return ChildIDsEqual(r.ChildID, childID)
}

// ChildIDsEqual compares two child ids tolerantly: exact string equality, or
// numeric equality when both parse as integers ("7" matches 7's string form
// regardless of leading zeros or surrounding whitespace).
func ChildIDsEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return true
	}
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	return aerr == nil && berr == nil && ai == bi
}

// RiskFromVerdict derives the risk level shown to guardians from the raw
// classifier verdict: "Autistic Syndrome" is high, anything else low.
func RiskFromVerdict(verdict string) string {
	if verdict == VerdictAutistic {
		return RiskHigh
	}
	return RiskLow
}

// ScoreFromConfidence converts a classifier confidence in [0,1] to the 0-100
// score shown in result views.
func ScoreFromConfidence(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// FormatDuration renders a duration in seconds the way result views expect
// it: minutes with one decimal place, e.g. 90 -> "1.5 minutes".
func FormatDuration(seconds int) string {
	m := math.Round(float64(seconds)/60*10) / 10
	return fmt.Sprintf("%g minutes", m)
}
