package services

import (
	"errors"
	"testing"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/types"
)

func TestLookupRoundTripAllStores(t *testing.T) {
	env := newTestEnv(t)

	user := env.seedUser(t, "Asha", "Verma")
	course := env.seedCourse(t, "Full Stack Web Development")
	enrollment := env.seedEnrollment(t, user.ID, course.ID, 100, 95, 3)
	courseID, courseKey, _, err := env.issuer.EnsureIssued(t.Context(), types.CertificateCategoryCourse, enrollment.ID)
	if err != nil {
		t.Fatalf("issue course: %v", err)
	}

	internship := env.seedInternship(t, "Platform Internship", "Webory")
	application := env.seedApplication(t, user.ID, internship.ID, types.ApplicationStatusCompleted, 10, 10)
	internID, _, _, err := env.issuer.EnsureIssued(t.Context(), types.CertificateCategoryInternship, application.ID)
	if err != nil {
		t.Fatalf("issue internship: %v", err)
	}

	custom, err := env.issuer.IssueCustom(t.Context(), "Jane Roe", "Community Award", "")
	if err != nil {
		t.Fatalf("issue custom: %v", err)
	}

	cases := []struct {
		name     string
		id       string
		category types.CertificateCategory
		student  string
		title    string
	}{
		{"course", courseID, types.CertificateCategoryCourse, "Asha Verma", "Full Stack Web Development"},
		{"internship", internID, types.CertificateCategoryInternship, "Asha Verma", "Platform Internship"},
		{"custom", custom.CertificateID, types.CertificateCategoryCustom, "Jane Roe", "Community Award"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := env.lookup.Lookup(t.Context(), tc.id)
			if err != nil {
				t.Fatalf("lookup %s: %v", tc.id, err)
			}
			if rec.Category != tc.category {
				t.Errorf("category = %s, want %s", rec.Category, tc.category)
			}
			if rec.StudentName != tc.student {
				t.Errorf("student = %q, want %q", rec.StudentName, tc.student)
			}
			if rec.Title != tc.title {
				t.Errorf("title = %q, want %q", rec.Title, tc.title)
			}
			if rec.CertificateID != tc.id {
				t.Errorf("certificate id = %q, want %q", rec.CertificateID, tc.id)
			}
		})
	}

	if courseKey == "" {
		t.Fatal("issued key should not be empty")
	}
}

func TestLookupNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.lookup.Lookup(t.Context(), "NOPE-000000-12345"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := env.lookup.Lookup(t.Context(), "  "); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument for blank id, got %v", err)
	}
}

func TestLookupIncompleteRecord(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Ben", "Okafor")
	course := env.seedCourse(t, "Data Engineering")
	enrollment := env.seedEnrollment(t, user.ID, course.ID, 100, 95, 2)
	id, _, _, err := env.issuer.EnsureIssued(t.Context(), types.CertificateCategoryCourse, enrollment.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Deleting the student leaves a certificate pointing at a missing owner.
	if err := env.db.Exec(`DELETE FROM "user" WHERE id = ?`, user.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	_, err = env.lookup.Lookup(t.Context(), id)
	if !errors.Is(err, apperrors.ErrIncompleteRecord) {
		t.Fatalf("want ErrIncompleteRecord, got %v", err)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		t.Fatal("incomplete record must stay distinct from not found")
	}
}

func TestExistsAnywhere(t *testing.T) {
	env := newTestEnv(t)
	custom, err := env.issuer.IssueCustom(t.Context(), "Lena Fischer", "Top Contributor", "")
	if err != nil {
		t.Fatalf("issue custom: %v", err)
	}

	found, err := env.lookup.ExistsAnywhere(t.Context(), custom.CertificateID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !found {
		t.Fatal("issued id should be reported as taken")
	}

	found, err = env.lookup.ExistsAnywhere(t.Context(), "GB-ABCDEF-00001")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if found {
		t.Fatal("unissued id should not be reported as taken")
	}
}

func TestLookupSourceOrderIsFixed(t *testing.T) {
	env := newTestEnv(t)
	svc := env.lookup.(*lookupService)
	want := []types.CertificateCategory{
		types.CertificateCategoryCourse,
		types.CertificateCategoryInternship,
		types.CertificateCategoryCustom,
	}
	if len(svc.sources) != len(want) {
		t.Fatalf("source count = %d, want %d", len(svc.sources), len(want))
	}
	for i, cat := range want {
		if svc.sources[i].Category() != cat {
			t.Errorf("source[%d] = %s, want %s", i, svc.sources[i].Category(), cat)
		}
	}
}
