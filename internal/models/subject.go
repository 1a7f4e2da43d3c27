package models

// Subject represents an academic subject tied to a study year.
type Subject struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Year int    `db:"year" json:"year"`
}

// Catedra is an independently taught section of a subject.
type Catedra struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	SubjectID int64  `db:"subject_id" json:"subject_id"`
}

// CatedraDetail augments a catedra with its subject name.
type CatedraDetail struct {
	Catedra
	SubjectName string `db:"subject_name" json:"subject_name"`
}
