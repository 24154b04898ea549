package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"remesas/internal/authz"
	"remesas/internal/models"
	"remesas/internal/ratelimit"
)

type testEnv struct {
	db      *memDB
	now     time.Time
	auth    AuthService
	emails  *fakeEmails
	notes   *fakeNotifications
	reviews *fakeReviews
	users   UserService
	kyc     *kycService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:      newMemDB(),
		now:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		auth:    NewAuthServiceWithCost(bcrypt.MinCost),
		emails:  newFakeEmails(),
		notes:   &fakeNotifications{},
		reviews: &fakeReviews{},
	}
	env.users = NewUserService(fakeUserRepo{env.db}, fakeKYCRepo{env.db}, env.emails, env.auth)
	env.kyc = NewKYCService(fakeKYCRepo{env.db}, fakeUserRepo{env.db}, env.notes, env.reviews, ratelimit.Noop{}).(*kycService)
	env.kyc.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) addUser(t *testing.T, role authz.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email: string(role) + "-" + uuid.NewString()[:8] + "@example.test",
		Name:  "Test " + string(role),
		Role:  role,
	}
	if err := (fakeUserRepo{e.db}).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) user(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, _ := fakeUserRepo{e.db}.GetByID(context.Background(), u.ID)
	return got
}

func (e *testEnv) verification(t *testing.T, k *models.KYCVerification) *models.KYCVerification {
	t.Helper()
	got, _ := fakeKYCRepo{e.db}.GetByID(context.Background(), k.ID)
	return got
}

func samplePersonalInfo() models.PersonalInfo {
	return models.PersonalInfo{
		FirstName:        "Ana",
		LastName:         "García",
		DateOfBirth:      "1990-04-12",
		Nationality:      "ES",
		ResidenceCountry: "ES",
		DocumentType:     "dni",
		DocumentNumber:   "12345678z",
		PhoneNumber:      "+34 600 111 222",
	}
}

// draftWithDocs returns a client with a draft holding every required document.
func (e *testEnv) draftWithDocs(t *testing.T) (*models.User, *models.KYCVerification) {
	t.Helper()
	ctx := context.Background()
	client := e.addUser(t, authz.RoleClient)
	k, err := e.kyc.SubmitPersonalInfo(ctx, client.ID, samplePersonalInfo())
	if err != nil {
		t.Fatalf("SubmitPersonalInfo: %v", err)
	}
	for _, d := range models.RequiredDocuments {
		if err := e.kyc.SetDocument(ctx, client.ID, k.ID, d, "/files/"+string(d)+".jpg"); err != nil {
			t.Fatalf("SetDocument(%s): %v", d, err)
		}
	}
	return client, k
}

// pendingKYC returns a verification already submitted for review.
func (e *testEnv) pendingKYC(t *testing.T) (*models.User, *models.KYCVerification) {
	t.Helper()
	client, k := e.draftWithDocs(t)
	if _, err := e.kyc.SubmitForReview(context.Background(), client.ID, k.ID); err != nil {
		t.Fatalf("SubmitForReview: %v", err)
	}
	return client, k
}
