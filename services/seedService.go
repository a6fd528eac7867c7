package services

import (
	"Medicare/models"
	"Medicare/repositories"
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	log "github.com/sirupsen/logrus"
)

var (
	seedSymptoms = []string{
		"Fever", "Cough", "Fatigue", "Headache", "Shortness of breath", "Chest pain",
		"Nausea", "Vomiting", "Dizziness", "Muscle pain", "Joint pain", "Sore throat",
	}
	seedAllergies   = []string{"Dust", "Pollen", "Peanuts", "None", "Seafood", "Penicillin"}
	seedDiseases    = []string{"Asthma", "Diabetes", "Hypertension", "Migraine", "COVID-19", "Tuberculosis"}
	seedMedications = []string{"Paracetamol", "Ibuprofen", "Metformin", "Aspirin", "Antihistamines"}
)

// Seeder fills a hospital with generated demo patients.
type Seeder struct {
	patients *repositories.PatientRepository
	faker    *gofakeit.Faker
	now      func() time.Time
}

// NewSeeder builds a seeder whose fake data is drawn from rng. A nil rng is
// seeded from the clock.
func NewSeeder(patients *repositories.PatientRepository, rng *rand.Rand) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Seeder{patients: patients, faker: gofakeit.NewFaker(rng, false), now: time.Now}
}

// Seed creates count patients, each with one record and one episode whose
// disease is the patient's previous disease.
func (s *Seeder) Seed(ctx context.Context, hospitalID uint, count int) (int, error) {
	for i := 0; i < count; i++ {
		patient, input := s.generate(hospitalID)
		if _, err := s.patients.CreateWithRecord(ctx, patient, input); err != nil {
			return i, err
		}
	}
	log.WithFields(log.Fields{"hospital_id": hospitalID, "patients": count}).Info("Seeded patients")
	return count, nil
}

func (s *Seeder) generate(hospitalID uint) (*models.Patient, repositories.RecordInput) {
	f := s.faker
	now := s.now().UTC()
	age := f.Number(1, 90)

	symptoms := s.sample(seedSymptoms, f.Number(1, 4))
	snapshot := models.Snapshot{
		Name:             f.Name(),
		Age:              age,
		Contact:          f.PhoneFormatted(),
		DateOfBirth:      f.DateRange(now.AddDate(-age-1, 0, 1), now.AddDate(-age, 0, 0)).Format("2006-01-02"),
		Symptoms:         models.JoinSymptoms(symptoms),
		Allergies:        f.RandomString(seedAllergies),
		PreviousDiseases: f.RandomString(seedDiseases),
		Weight:           fmt.Sprint(f.Number(30, 100)),
		Height:           fmt.Sprint(f.Number(120, 200)),
		Medications:      f.RandomString(seedMedications),
	}
	summary := fmt.Sprintf("Patient reports %s. History of %s. Allergic to %s. Currently taking %s. Vitals: %skg, %scm.",
		strings.Join(symptoms, ", "), snapshot.PreviousDiseases, snapshot.Allergies, snapshot.Medications, snapshot.Weight, snapshot.Height)

	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	visit := f.DateRange(yearStart, now)

	patient := &models.Patient{HospitalID: hospitalID, Snapshot: snapshot, MedicalSummary: summary}
	return patient, repositories.RecordInput{
		DocumentSummary: summary,
		VisitDate:       visit,
		Episode:         &repositories.Episode{Symptoms: symptoms, Disease: snapshot.PreviousDiseases},
	}
}

// sample draws k distinct values.
func (s *Seeder) sample(values []string, k int) []string {
	shuffled := append([]string(nil), values...)
	s.faker.ShuffleStrings(shuffled)
	return shuffled[:k]
}
