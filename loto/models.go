package loto

import "time"

// DrawRecord is one corpus row in SQLite. The canonical ball columns are real columns for ad-hoc
// SQL; BallsJSON and ExtrasJSON carry the full record so LoadCorpus can rebuild it.
type DrawRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Position  int       `gorm:"index"` // 0 is the newest draw
	Source    string    `gorm:"column:source_file;index;size:255"`
	TypeLoto  string    `gorm:"column:type_loto;index;size:16"`
	YearIndex string    `gorm:"column:annee_numero_de_tirage;uniqueIndex:uniq_draw;size:16"`
	Weekday   string    `gorm:"column:jour_de_tirage;uniqueIndex:uniq_draw;size:16"`
	Date      string    `gorm:"column:date_de_tirage;uniqueIndex:uniq_draw;size:10"`
	DrawnOn   time.Time `gorm:"index"`

	Boule1       int `gorm:"column:boule_1"`
	Boule2       int `gorm:"column:boule_2"`
	Boule3       int `gorm:"column:boule_3"`
	Boule4       int `gorm:"column:boule_4"`
	Boule5       int `gorm:"column:boule_5"`
	NumeroChance int `gorm:"column:numero_chance"`
	Boule1Second int `gorm:"column:boule_1_second_tirage"`
	Boule2Second int `gorm:"column:boule_2_second_tirage"`
	Boule3Second int `gorm:"column:boule_3_second_tirage"`
	Boule4Second int `gorm:"column:boule_4_second_tirage"`

	BallsJSON  string `gorm:"type:text"`
	ExtrasJSON string `gorm:"type:text"`
}

// CorpusMeta keeps the column order of the persisted corpus. There is at most one row.
type CorpusMeta struct {
	ID          uint   `gorm:"primaryKey"`
	ColumnsJSON string `gorm:"type:text"`
	Draws       int
	Oldest      string `gorm:"size:10"`
	Newest      string `gorm:"size:10"`
	PersistedAt time.Time
}

// Archive outcomes recorded in ProcessedArchive.Status.
const (
	ArchiveOK             = "ok"
	ArchiveRetrievalError = "retrieval_error"
	ArchiveSchemaError    = "schema_error"
)

// ProcessedArchive is the ingestion ledger: the last outcome of every archive location.
type ProcessedArchive struct {
	ID              uint   `gorm:"primaryKey"`
	Location        string `gorm:"uniqueIndex;size:1024"`
	SourceFile      string `gorm:"index;size:255"`
	SHA256          string `gorm:"column:sha256;size:64"`
	Category        string `gorm:"index;size:16"`
	Rows            int
	UnmatchedSecond int
	Status          string    `gorm:"index;size:32"`
	LastError       string    `gorm:"type:text"`
	ProcessedAt     time.Time `gorm:"index"`
}
