package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/database"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()

	db, err := database.Connect("sqlite://"+filepath.Join(t.TempDir(), "service.db"), false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewStore(db)
}

// labFixture seeds one subject with one question, an admin, two TAs, an enrolled student
// and a student without enrollments.
type labFixture struct {
	store      repository.Store
	admin      models.Account
	ta         models.Account
	otherTA    models.Account
	student    models.Account
	unenrolled models.Account
	subject    models.Subject
	question   models.Question
}

func newLabFixture(t *testing.T) labFixture {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)

	f := labFixture{store: store}
	f.admin = createAccount(t, store, "Ada", "ada@example.com", models.RoleAdmin)
	f.ta = createAccount(t, store, "Tom", "tom@example.com", models.RoleTA)
	f.otherTA = createAccount(t, store, "Tia", "tia@example.com", models.RoleTA)
	f.student = createAccount(t, store, "Sam", "sam@example.com", models.RoleStudent)
	f.unenrolled = createAccount(t, store, "Una", "una@example.com", models.RoleStudent)

	f.subject = models.Subject{Name: "Algorithms"}
	require.NoError(t, store.Subjects().Create(ctx, &f.subject))
	f.question = models.Question{SubjectID: f.subject.ID, Text: "Implement a binary heap"}
	require.NoError(t, store.Questions().Create(ctx, &f.question))
	require.NoError(t, store.Enrollments().Create(ctx, &models.Enrollment{UserID: f.student.ID, SubjectID: f.subject.ID}))

	return f
}

func (f labFixture) adminActor() Actor {
	return ActorFromAccount(f.admin)
}

func (f labFixture) taActor() Actor {
	return ActorFromAccount(f.ta)
}

func createAccount(t *testing.T, store repository.Store, name, email string, role models.Role) models.Account {
	t.Helper()
	account := models.Account{Name: name, Email: email, Role: role}
	require.NoError(t, store.Accounts().Create(context.Background(), &account))
	return account
}

func strPtr(v string) *string {
	return &v
}

type stubVerifier struct {
	claims auth.ExternalClaims
	err    error
}

func (s stubVerifier) Verify(context.Context, string) (auth.ExternalClaims, error) {
	if s.err != nil {
		return auth.ExternalClaims{}, s.err
	}
	return s.claims, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []EvaluationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event EvaluationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}
