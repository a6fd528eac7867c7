package models

import (
	"time"
)

// Snapshot is the patient's current clinical state. It is overwritten on
// every update or visit.
type Snapshot struct {
	Name             string `gorm:"column:name" json:"name"`
	Age              int    `gorm:"column:age" json:"age"`
	Contact          string `gorm:"column:contact" json:"contact"`
	DateOfBirth      string `gorm:"column:dob" json:"dob"`
	Symptoms         string `gorm:"column:symptoms" json:"symptoms"`
	Allergies        string `gorm:"column:allergies" json:"allergies"`
	PreviousDiseases string `gorm:"column:previous_diseases" json:"previous_diseases"`
	Weight           string `gorm:"column:weight" json:"weight"`
	Height           string `gorm:"column:height" json:"height"`
	Medications      string `gorm:"column:medications" json:"medications"`
}

// Patient model
type Patient struct {
	ID         uint `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	HospitalID uint `gorm:"column:hospital_id;not null;index" json:"hospital_id"`

	Snapshot `gorm:"embedded"`

	MedicalSummary string           `gorm:"column:medical_summary;type:text" json:"medical_summary"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	MedicalRecords []MedicalRecord  `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	DiseaseHistory []DiseaseHistory `gorm:"foreignKey:PatientID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

// MedicalRecord is an append-only visit snapshot.
type MedicalRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID        uint      `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Symptoms         string    `gorm:"column:symptoms" json:"symptoms"`
	DocumentSummary  string    `gorm:"column:document_summary;type:text" json:"document_summary"`
	DocumentKey      string    `gorm:"column:document_key" json:"document_key,omitempty"`
	VisitDate        time.Time `gorm:"column:visit_date;index" json:"visit_date"`
	Allergies        string    `gorm:"column:allergies" json:"allergies"`
	PreviousDiseases string    `gorm:"column:previous_diseases" json:"previous_diseases"`
	Medications      string    `gorm:"column:medications" json:"medications"`
	Weight           string    `gorm:"column:weight" json:"weight"`
	Height           string    `gorm:"column:height" json:"height"`
}

func (MedicalRecord) TableName() string {
	return "medical_records"
}

// NewMedicalRecord builds the visit row that mirrors snapshot s.
func NewMedicalRecord(patientID uint, s Snapshot, documentSummary, documentKey string, visitDate time.Time) *MedicalRecord {
	return &MedicalRecord{
		PatientID:        patientID,
		Symptoms:         s.Symptoms,
		DocumentSummary:  documentSummary,
		DocumentKey:      documentKey,
		VisitDate:        visitDate,
		Allergies:        s.Allergies,
		PreviousDiseases: s.PreviousDiseases,
		Medications:      s.Medications,
		Weight:           s.Weight,
		Height:           s.Height,
	}
}

// DiseaseHistory is one predicted-disease episode.
type DiseaseHistory struct {
	ID               uint            `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PatientID        uint            `gorm:"column:patient_id;not null;index" json:"patient_id"`
	Symptoms         string          `gorm:"column:symptoms" json:"symptoms"`
	PredictedDisease string          `gorm:"column:predicted_disease" json:"predicted_disease"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	TreatmentPlans   []TreatmentPlan `gorm:"foreignKey:DiseaseID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DiseaseHistory) TableName() string {
	return "disease_history"
}

// SameEpisode reports whether h records the same symptoms and prediction.
func (h *DiseaseHistory) SameEpisode(symptoms, disease string) bool {
	return h.Symptoms == symptoms && h.PredictedDisease == disease
}

// TreatmentPlan model
type TreatmentPlan struct {
	ID         uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	DiseaseID  uint      `gorm:"column:disease_id;not null;index" json:"disease_id"`
	Treatment  string    `gorm:"column:treatment;type:text" json:"treatment"`
	Medication string    `gorm:"column:medication;type:text" json:"medication"`
	Tests      string    `gorm:"column:tests;type:text" json:"tests"`
	Precaution string    `gorm:"column:precaution;type:text" json:"precaution"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TreatmentPlan) TableName() string {
	return "treatment_plans"
}
