package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/core/user"
)

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	canvas.InitValidators(validate, translator)
	tactic.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTactic(t *testing.T, repo tactic.Repository, owner user.User, title string, isPublic bool, lines ...canvas.Stroke) tactic.Tactic {
	now := time.Now().UTC()
	doc := canvas.NewDocument()
	doc.Lines = append(doc.Lines, lines...)
	tac, err := repo.CreateTactic(context.Background(), tactic.Tactic{
		OwnerID:     owner.ID,
		Title:       title,
		Category:    tactic.CategoryDefense,
		Description: "notes for " + title,
		IsPublic:    isPublic,
		ImageURL:    "http://media.test/" + owner.ID + "/1.png",
		Canvas:      doc,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateTactic() failed: %v", err)
	}
	return tac
}

// MemoryStorage is an in-memory core.ObjectStorage.
type MemoryStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
	DelErr  error
	Puts    int
	Deletes []string

	// Block holds every Put until closed when set.
	Block chan struct{}
}

var _ core.ObjectStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.Block != nil {
		<-s.Block
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Puts++
	if s.PutErr != nil {
		return "", s.PutErr
	}
	s.Objects[key] = data
	return "http://media.test/" + key, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Deletes = append(s.Deletes, key)
	if s.DelErr != nil {
		return s.DelErr
	}
	delete(s.Objects, key)
	return nil
}

func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

// StubRasterizer renders a document to a short textual fingerprint.
type StubRasterizer struct {
	Err   error
	Calls int
}

func (r *StubRasterizer) Rasterize(doc canvas.Document) ([]byte, error) {
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	return []byte(fmt.Sprintf("png:%d", len(doc.Lines))), nil
}

// Logger is a core.Logger collecting messages.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

// ErrBoom is a generic failure injected by fakes.
var ErrBoom = errors.New("boom")
