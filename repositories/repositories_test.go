package repositories

import (
	"Medicare/apperrors"
	"Medicare/database"
	"Medicare/models"
	"Medicare/testutil"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type stores struct {
	db        *gorm.DB
	redis     *testutil.Redis
	hospitals *HospitalRepository
	patients  *PatientRepository
	history   *DiseaseHistoryRepository
	records   *MedicalRecordRepository
	plans     *TreatmentPlanRepository
}

func newStores(t *testing.T) *stores {
	t.Helper()
	db := testutil.NewTestDB(t)
	rd := testutil.NewTestRedis(t)
	return &stores{
		db:        db,
		redis:     rd,
		hospitals: NewHospitalRepository(db, rd.Cache),
		patients:  NewPatientRepository(db, rd.Cache, rd.Locker),
		history:   NewDiseaseHistoryRepository(db, rd.Locker),
		records:   NewMedicalRecordRepository(db),
		plans:     NewTreatmentPlanRepository(db, rd.Cache, rd.Locker),
	}
}

func fullSnapshot() models.Snapshot {
	return models.Snapshot{
		Name:             "Asha Mwangi",
		Age:              34,
		Contact:          "0700000000",
		DateOfBirth:      "1990-04-02",
		Symptoms:         "fever, cough",
		Allergies:        "penicillin",
		PreviousDiseases: "malaria",
		Weight:           "61",
		Height:           "168",
		Medications:      "none",
	}
}

func (s *stores) createPatient(t *testing.T, hospitalID uint, episode *Episode) *models.Patient {
	t.Helper()
	p := &models.Patient{HospitalID: hospitalID, Snapshot: fullSnapshot(), MedicalSummary: "stable"}
	if _, err := s.patients.CreateWithRecord(context.Background(), p, RecordInput{DocumentSummary: "N/A", Episode: episode}); err != nil {
		t.Fatalf("CreateWithRecord: %v", err)
	}
	return p
}

func (s *stores) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestCreateWithRecord_UnknownHospital(t *testing.T) {
	s := newStores(t)
	p := &models.Patient{HospitalID: 99, Snapshot: fullSnapshot()}

	_, err := s.patients.CreateWithRecord(context.Background(), p, RecordInput{})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if n := s.count(t, &models.Patient{}); n != 0 {
		t.Errorf("patients = %d, want 0", n)
	}
}

func TestCreateWithRecord_WritesRecordAndEpisode(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	ctx := context.Background()

	p := &models.Patient{HospitalID: h.ID, Snapshot: fullSnapshot()}
	appended, err := s.patients.CreateWithRecord(ctx, p, RecordInput{
		DocumentSummary: "x-ray clear",
		Episode:         &Episode{Symptoms: []string{"fever", "cough"}, Disease: "flu"},
	})
	if err != nil {
		t.Fatalf("CreateWithRecord: %v", err)
	}
	if !appended {
		t.Error("first episode not appended")
	}

	records, err := s.records.ListByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(records) != 1 || records[0].DocumentSummary != "x-ray clear" || records[0].Symptoms != "fever, cough" {
		t.Errorf("records = %+v", records)
	}
	if records[0].VisitDate.IsZero() {
		t.Error("visit date not defaulted")
	}

	latest, err := s.history.Latest(ctx, p.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Symptoms != "fever, cough" || latest.PredictedDisease != "flu" {
		t.Errorf("latest = %+v", latest)
	}
}

func TestAppend_RepeatedEpisodeIsSkipped(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)
	ctx := context.Background()
	ep := Episode{Symptoms: []string{"fever", "cough"}, Disease: "flu"}

	first, err := s.history.Append(ctx, p.ID, ep)
	if err != nil || !first {
		t.Fatalf("first append = %v, %v", first, err)
	}
	second, err := s.history.Append(ctx, p.ID, ep)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if second {
		t.Error("repeated episode appended")
	}
	if n := s.count(t, &models.DiseaseHistory{}); n != 1 {
		t.Errorf("history rows = %d, want 1", n)
	}
}

func TestAppend_ComparesAgainstLatestOnly(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)
	ctx := context.Background()

	a := Episode{Symptoms: []string{"fever", "cough"}, Disease: "flu"}
	b := Episode{Symptoms: []string{"fever", "fatigue"}, Disease: "malaria"}
	for i, ep := range []Episode{a, b, a} {
		appended, err := s.history.Append(ctx, p.ID, ep)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if !appended {
			t.Errorf("append %d skipped", i)
		}
	}

	rows, err := s.history.ListByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].PredictedDisease != "flu" || rows[1].PredictedDisease != "malaria" || rows[2].PredictedDisease != "flu" {
		t.Errorf("order = %s, %s, %s", rows[0].PredictedDisease, rows[1].PredictedDisease, rows[2].PredictedDisease)
	}
}

func TestAppend_SameDiseaseDifferentSymptoms(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, &Episode{Symptoms: []string{"fever", "cough"}, Disease: "flu"})

	appended, err := s.history.Append(context.Background(), p.ID, Episode{Symptoms: []string{"fever", "cough", "fatigue"}, Disease: "flu"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !appended {
		t.Error("new symptom set with the same disease was skipped")
	}
}

func TestLatest_SameTimestampPrefersHighestID(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, disease := range []string{"flu", "malaria"} {
		row := &models.DiseaseHistory{PatientID: p.ID, Symptoms: "fever", PredictedDisease: disease, CreatedAt: at}
		if err := s.db.Create(row).Error; err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	latest, err := s.history.Latest(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.PredictedDisease != "malaria" {
		t.Errorf("latest = %s, want malaria", latest.PredictedDisease)
	}
}

func TestLatest_NoHistory(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)

	if _, err := s.history.Latest(context.Background(), p.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestUpdateWithRecord_PartialPatch(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)
	ctx := context.Background()

	updated, appended, err := s.patients.UpdateWithRecord(ctx, p.ID, models.Snapshot{Weight: "64"}, "", RecordInput{DocumentSummary: "N/A"})
	if err != nil {
		t.Fatalf("UpdateWithRecord: %v", err)
	}
	if appended {
		t.Error("episode appended without a prediction")
	}

	want := fullSnapshot()
	want.Weight = "64"
	if updated.Snapshot != want {
		t.Errorf("snapshot = %+v, want %+v", updated.Snapshot, want)
	}
	if updated.MedicalSummary != "stable" {
		t.Errorf("medical summary = %q", updated.MedicalSummary)
	}

	stored, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Snapshot != want {
		t.Errorf("stored snapshot = %+v", stored.Snapshot)
	}

	records, err := s.records.ListByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[1].Weight != "64" || records[1].Allergies != "penicillin" {
		t.Errorf("new record = %+v", records[1])
	}
}

func TestUpdateWithRecord_UnknownPatient(t *testing.T) {
	s := newStores(t)

	_, _, err := s.patients.UpdateWithRecord(context.Background(), 7, models.Snapshot{Weight: "64"}, "", RecordInput{})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestUpdateWithRecord_LockHeldElsewhere(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)
	ctx := context.Background()

	lock, err := s.redis.Locker.Acquire(ctx, database.PatientLockKey(p.ID))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release(ctx)

	_, _, err = s.patients.UpdateWithRecord(ctx, p.ID, models.Snapshot{Weight: "64"}, "", RecordInput{})
	if !errors.Is(err, apperrors.ErrTransaction) {
		t.Errorf("err = %v, want transaction failure", err)
	}
	if n := s.count(t, &models.MedicalRecord{}); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

func TestDeleteCascade_RemovesEverything(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	ctx := context.Background()

	p := s.createPatient(t, h.ID, &Episode{Symptoms: []string{"fever"}, Disease: "flu"})
	if _, _, err := s.patients.UpdateWithRecord(ctx, p.ID, models.Snapshot{Symptoms: "cough"}, "", RecordInput{
		Episode: &Episode{Symptoms: []string{"cough"}, Disease: "common_cold"},
	}); err != nil {
		t.Fatalf("UpdateWithRecord: %v", err)
	}
	if _, err := s.plans.CreateForLatestEpisode(ctx, p.ID, &models.TreatmentPlan{Treatment: "rest"}); err != nil {
		t.Fatalf("CreateForLatestEpisode: %v", err)
	}
	other := s.createPatient(t, h.ID, &Episode{Symptoms: []string{"fever"}, Disease: "flu"})

	if err := s.patients.DeleteCascade(ctx, p.ID); err != nil {
		t.Fatalf("DeleteCascade: %v", err)
	}

	for _, q := range []struct {
		model interface{}
		where string
	}{
		{&models.Patient{}, "id = ?"},
		{&models.MedicalRecord{}, "patient_id = ?"},
		{&models.DiseaseHistory{}, "patient_id = ?"},
	} {
		var n int64
		if err := s.db.Model(q.model).Where(q.where, p.ID).Count(&n).Error; err != nil {
			t.Fatalf("count %T: %v", q.model, err)
		}
		if n != 0 {
			t.Errorf("%T rows left = %d", q.model, n)
		}
	}
	if n := s.count(t, &models.TreatmentPlan{}); n != 0 {
		t.Errorf("treatment plans left = %d", n)
	}
	if _, err := s.patients.GetByID(ctx, other.ID); err != nil {
		t.Errorf("other patient: %v", err)
	}

	if err := s.patients.DeleteCascade(ctx, p.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}
}

func TestListByHospital_CacheInvalidatedOnWrite(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	ctx := context.Background()

	s.createPatient(t, h.ID, nil)
	first, err := s.patients.ListByHospital(ctx, h.ID)
	if err != nil {
		t.Fatalf("ListByHospital: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("patients = %d, want 1", len(first))
	}
	if !s.redis.Server.Exists("patients_cache:hospital:1") {
		t.Error("list not cached")
	}

	second := s.createPatient(t, h.ID, nil)
	list, err := s.patients.ListByHospital(ctx, h.ID)
	if err != nil {
		t.Fatalf("ListByHospital: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("list = %+v", list)
	}

	empty, err := s.patients.ListByHospital(ctx, 42)
	if err != nil {
		t.Fatalf("ListByHospital unknown: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown hospital list = %v", empty)
	}
}

func TestTreatmentPlan_NoHistory(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, nil)

	_, err := s.plans.CreateForLatestEpisode(context.Background(), p.ID, &models.TreatmentPlan{Treatment: "rest"})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
	if n := s.count(t, &models.TreatmentPlan{}); n != 0 {
		t.Errorf("plans = %d, want 0", n)
	}
}

func TestTreatmentPlan_Lifecycle(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	p := s.createPatient(t, h.ID, &Episode{Symptoms: []string{"fever"}, Disease: "flu"})
	ctx := context.Background()

	plan := &models.TreatmentPlan{Treatment: "rest", Medication: "paracetamol"}
	episode, err := s.plans.CreateForLatestEpisode(ctx, p.ID, plan)
	if err != nil {
		t.Fatalf("CreateForLatestEpisode: %v", err)
	}
	if plan.DiseaseID != episode.ID || episode.PredictedDisease != "flu" {
		t.Errorf("plan attached to %d, episode %+v", plan.DiseaseID, episode)
	}

	plans, err := s.plans.ListByPatient(ctx, p.ID)
	if err != nil || len(plans) != 1 {
		t.Fatalf("ListByPatient = %v, %v", plans, err)
	}

	updated, err := s.plans.Update(ctx, plan.ID, PlanUpdate{Treatment: " rest ", Tests: "CBC"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Tests != "CBC" || updated.Treatment != "rest" || updated.Medication != "" {
		t.Errorf("updated = %+v", updated)
	}
	stored, err := s.plans.GetByID(ctx, plan.ID)
	if err != nil || stored.Medication != "" || stored.Tests != "CBC" {
		t.Errorf("stored = %+v, %v", stored, err)
	}

	plans, err = s.plans.ListByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(plans) != 1 || plans[0].Tests != "CBC" {
		t.Errorf("stale list after update: %+v", plans)
	}

	if err := s.plans.Delete(ctx, plan.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.plans.GetByID(ctx, plan.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetByID after delete err = %v", err)
	}
	if err := s.plans.Delete(ctx, plan.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	plans, err = s.plans.ListByPatient(ctx, p.ID)
	if err != nil || len(plans) != 0 {
		t.Errorf("ListByPatient after delete = %v, %v", plans, err)
	}
}

func TestListByPatient_UnknownPatient(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	if _, err := s.records.ListByPatient(ctx, 5); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("records err = %v", err)
	}
	if _, err := s.history.ListByPatient(ctx, 5); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("history err = %v", err)
	}
	if _, err := s.plans.ListByPatient(ctx, 5); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("plans err = %v", err)
	}
}

func TestPurgeAll(t *testing.T) {
	s := newStores(t)
	h := testutil.SeedHospital(t, s.db, "city")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p := s.createPatient(t, h.ID, &Episode{Symptoms: []string{"fever"}, Disease: "flu"})
		if _, err := s.plans.CreateForLatestEpisode(ctx, p.ID, &models.TreatmentPlan{Treatment: "rest"}); err != nil {
			t.Fatalf("CreateForLatestEpisode: %v", err)
		}
	}
	if _, err := s.patients.ListByHospital(ctx, h.ID); err != nil {
		t.Fatalf("ListByHospital: %v", err)
	}

	removed, err := s.patients.PurgeAll(ctx)
	if err != nil {
		t.Fatalf("PurgeAll: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	for _, model := range []interface{}{&models.Patient{}, &models.MedicalRecord{}, &models.DiseaseHistory{}, &models.TreatmentPlan{}} {
		if n := s.count(t, model); n != 0 {
			t.Errorf("%T rows = %d", model, n)
		}
	}
	if n := s.count(t, &models.Hospital{}); n != 1 {
		t.Errorf("hospitals = %d, want 1", n)
	}
	if s.redis.Server.Exists("patients_cache:hospital:1") {
		t.Error("patient list cache survived purge")
	}
}

func TestHospitalRepository(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	h := &models.Hospital{Name: "City", Email: " Admin@City.test ", Password: "hash"}
	if err := s.hospitals.Create(ctx, h); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.Email != "admin@city.test" {
		t.Errorf("email = %q", h.Email)
	}

	dup := &models.Hospital{Name: "Other", Email: "admin@city.test", Password: "hash"}
	if err := s.hospitals.Create(ctx, dup); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("duplicate err = %v, want conflict", err)
	}

	byEmail, err := s.hospitals.GetByEmail(ctx, "ADMIN@city.test")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.Password != "hash" {
		t.Error("password hash not loaded for login")
	}

	byID, err := s.hospitals.GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Name != "City" || byID.Password != "" {
		t.Errorf("byID = %+v", byID)
	}
	if _, err := s.hospitals.GetByID(ctx, 404); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("nil reported as violation")
	}
	if !isUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Error("gorm.ErrDuplicatedKey not detected")
	}
	if !isUniqueViolation(errors.New("UNIQUE constraint failed: hospitals.email")) {
		t.Error("sqlite message not detected")
	}
}
