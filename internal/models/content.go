package models

import "time"

// MockTest is a two-dialogue exam definition. Content rows are owned by the
// catalog service; this core only reads them.
type MockTest struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:600;not null" json:"title"`
	LanguageID      uint      `gorm:"not null" json:"language_id"`
	DialogueID      uint      `gorm:"not null" json:"dialogue_id"`
	DialogueID2     uint      `gorm:"column:dialogue_id_2" json:"dialogue_id_2"`
	DurationSeconds int       `json:"duration_seconds"`
	TotalMarks      float64   `gorm:"type:numeric(10,2);not null;default:90" json:"total_marks"`
	PassMarks       float64   `gorm:"type:numeric(10,2);not null;default:63" json:"pass_marks"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasDistinctDialogues reports whether the test references two different dialogues.
func (m MockTest) HasDistinctDialogues() bool {
	return m.DialogueID != 0 && m.DialogueID2 != 0 && m.DialogueID != m.DialogueID2
}

// Dialogue is a practice conversation made of ordered segments.
type Dialogue struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LanguageID uint      `gorm:"not null" json:"language_id"`
	Title      string    `gorm:"size:600;not null" json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Segment is one gradable spoken turn within a dialogue.
type Segment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	DialogueID        uint      `gorm:"not null;index" json:"dialogue_id"`
	SegmentOrder      int       `gorm:"not null" json:"segment_order"`
	TextContent       string    `gorm:"type:text;not null" json:"text_content"`
	AudioURL          string    `gorm:"size:600" json:"audio_url"`
	SuggestedAudioURL string    `gorm:"size:600" json:"suggested_audio_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
