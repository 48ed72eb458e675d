package tactic_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/core/user"
	"github.com/trezcool/coachboard/storage/database/inmem"
	"github.com/trezcool/coachboard/tests"
)

type fixture struct {
	svc     *tactic.Service
	repo    tactic.Repository
	storage *testutil.MemoryStorage
	raster  *testutil.StubRasterizer
	logger  *testutil.Logger
	coach   user.User
	other   user.User
}

func setup(t *testing.T, repo ...tactic.Repository) *fixture {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	f := &fixture{
		repo:    inmemdb.NewTacticRepository(db),
		storage: testutil.NewMemoryStorage(),
		raster:  &testutil.StubRasterizer{},
		logger:  &testutil.Logger{},
		coach:   testutil.CreateUser(t, usrRepo, "Coach", "coach@test.cd", "", true),
		other:   testutil.CreateUser(t, usrRepo, "Other", "other@test.cd", "", true),
	}
	if len(repo) > 0 {
		f.repo = repo[0]
	}
	validate, _ := testutil.NewValidator()
	f.svc = tactic.NewService(f.repo, f.storage, f.raster, validate, f.logger)
	return f
}

// failingRepo fails every write.
type failingRepo struct {
	tactic.Repository
}

func (failingRepo) CreateTactic(context.Context, tactic.Tactic, ...core.DBExecutor) (tactic.Tactic, error) {
	return tactic.Tactic{}, testutil.ErrBoom
}

func (failingRepo) UpdateTactic(context.Context, tactic.Tactic, ...core.DBExecutor) (tactic.Tactic, error) {
	return tactic.Tactic{}, testutil.ErrBoom
}

func arrow(x0, y0, x1, y1 float64) canvas.Stroke {
	return canvas.Stroke{Tool: canvas.ToolArrow, Points: []float64{x0, y0, x1, y1}, Color: "#000000"}
}

func validSave(title string) tactic.SaveTactic {
	doc := canvas.NewDocument()
	doc.Lines = append(doc.Lines,
		canvas.Stroke{Tool: canvas.ToolFreehand, Points: []float64{10, 10, 10, 10, 15, 15, 20, 20}, Color: "#ffffff"},
		arrow(0, 0, 50, 50),
	)
	doc.Players[4].X, doc.Players[4].Y = 200, 420
	return tactic.SaveTactic{
		Title:       title,
		Category:    tactic.CategorySetPiece,
		Description: "corner routine",
		IsPublic:    true,
		Canvas:      doc,
	}
}

func TestService_LoadDefault(t *testing.T) {
	f := setup(t)

	for _, id := range []string{"", "   "} {
		v, err := f.svc.Load(context.Background(), f.coach.ID, id)
		require.NoError(t, err)
		assert.False(t, v.ReadOnly)
		assert.Empty(t, v.ID)
		assert.Empty(t, v.Title)
		assert.Equal(t, tactic.DefaultCategory, v.Category)
		assert.Empty(t, v.Canvas.Lines)
		assert.Equal(t, canvas.DefaultTokens(), v.Canvas.Players)
	}
}

func TestService_Load(t *testing.T) {
	f := setup(t)
	public := testutil.CreateTactic(t, f.repo, f.coach, "Public", true, arrow(1, 1, 2, 2))
	private := testutil.CreateTactic(t, f.repo, f.coach, "Private", false)

	tests := []struct {
		name         string
		viewer       string
		id           string
		wantErr      error
		wantReadOnly bool
	}{
		{name: "owner public", viewer: f.coach.ID, id: public.ID},
		{name: "owner private", viewer: f.coach.ID, id: private.ID},
		{name: "non-owner public", viewer: f.other.ID, id: public.ID, wantReadOnly: true},
		{name: "non-owner private", viewer: f.other.ID, id: private.ID, wantErr: tactic.ErrNotFound},
		{name: "unknown", viewer: f.coach.ID, id: "5c1f5cf6-0000-4000-8000-000000000000", wantErr: tactic.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := f.svc.Load(context.Background(), tt.viewer, tt.id)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, v.ID)
			assert.Equal(t, tt.wantReadOnly, v.ReadOnly)
		})
	}
}

func TestService_SaveRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tactic.NowFunc = func() time.Time { return now }
	defer func() { tactic.NowFunc = time.Now }()

	data := validSave("  Corner A  ")
	saved, err := f.svc.Save(ctx, f.coach.ID, data)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	key := f.coach.ID + "/" + "1709294400000.png"
	assert.Equal(t, "http://media.test/"+key, saved.ImageURL)
	assert.Contains(t, f.storage.Objects, key)

	v, err := f.svc.Load(ctx, f.coach.ID, saved.ID)
	require.NoError(t, err)
	assert.False(t, v.ReadOnly)
	assert.Equal(t, "Corner A", v.Title)
	assert.Equal(t, tactic.CategorySetPiece, v.Category)
	assert.Equal(t, "corner routine", v.Description)
	assert.True(t, v.IsPublic)
	assert.Equal(t, f.coach.ID, v.OwnerID)
	assert.Equal(t, data.Canvas, v.Canvas)

	// update keeps the id and replaces the document wholesale
	data.ID = saved.ID
	data.Canvas.Lines = data.Canvas.Lines[:1]
	data.Title = "Corner B"
	updated, err := f.svc.Save(ctx, f.coach.ID, data)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)

	v, err = f.svc.Load(ctx, f.coach.ID, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corner B", v.Title)
	assert.Len(t, v.Canvas.Lines, 1)
	assert.Equal(t, saved.CreatedAt, v.CreatedAt)
}

func TestService_SaveReplacesPreview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tactic.NowFunc = func() time.Time { return now }
	defer func() { tactic.NowFunc = time.Now }()

	data := validSave("Corner")
	saved, err := f.svc.Save(ctx, f.coach.ID, data)
	require.NoError(t, err)
	first := f.coach.ID + "/1709294400000.png"

	now = now.Add(time.Second)
	data.ID = saved.ID
	updated, err := f.svc.Save(ctx, f.coach.ID, data)
	require.NoError(t, err)
	second := f.coach.ID + "/1709294401000.png"

	assert.Equal(t, "http://media.test/"+second, updated.ImageURL)
	assert.Equal(t, []string{first}, f.storage.Deletes)
	assert.NotContains(t, f.storage.Objects, first)
	assert.Contains(t, f.storage.Objects, second)

	// same millisecond: the upload overwrote the previous object
	_, err = f.svc.Save(ctx, f.coach.ID, data)
	require.NoError(t, err)
	assert.Len(t, f.storage.Deletes, 1)
	assert.Contains(t, f.storage.Objects, second)

	t.Run("failed removal is logged", func(t *testing.T) {
		f.storage.DelErr = testutil.ErrBoom
		now = now.Add(time.Second)
		_, err := f.svc.Save(ctx, f.coach.ID, data)
		require.NoError(t, err)
		assert.Len(t, f.logger.Messages, 1)
	})
}

func TestPreviewKey(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		url   string
		want  string
	}{
		{name: "fs", owner: "o-1", url: "http://localhost:8000/media/o-1/1700000000000.png", want: "o-1/1700000000000.png"},
		{name: "bucket", owner: "o-1", url: "https://s3.test/previews/o-1/17.png", want: "o-1/17.png"},
		{name: "other owner", owner: "o-1", url: "http://media.test/o-2/17.png"},
		{name: "not a preview", owner: "o-1", url: "http://media.test/o-1/17.pdf"},
		{name: "empty", owner: "o-1", url: ""},
		{name: "no owner", owner: "", url: "http://media.test//17.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tactic.PreviewKey(tt.owner, tt.url))
		})
	}
}

func TestService_SaveValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		modify func(d *tactic.SaveTactic)
		field  string
	}{
		{name: "blank title", modify: func(d *tactic.SaveTactic) { d.Title = "   " }, field: "title"},
		{name: "unknown category", modify: func(d *tactic.SaveTactic) { d.Category = "offside" }, field: "category"},
		{name: "missing category", modify: func(d *tactic.SaveTactic) { d.Category = "" }, field: "category"},
		{name: "missing token", modify: func(d *tactic.SaveTactic) { d.Canvas.Players = d.Canvas.Players[:4] }, field: "players"},
		{name: "recolored ball", modify: func(d *tactic.SaveTactic) { d.Canvas.Players[4].Color = "#000000" }, field: "players"},
		{name: "recolored player", modify: func(d *tactic.SaveTactic) { d.Canvas.Players[0].Color = "purple" }, field: "players"},
		{
			name:   "bad stroke",
			modify: func(d *tactic.SaveTactic) { d.Canvas.Lines[0].Points = []float64{1} },
			field:  "points",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validSave("Title")
			tt.modify(&data)

			_, err := f.svc.Save(context.Background(), f.coach.ID, data)
			require.Error(t, err)

			var fields []string
			switch vErr := errors.Cause(err).(type) {
			case validator.ValidationErrors:
				for _, fe := range vErr {
					fields = append(fields, fe.Field())
				}
			case *core.ValidationError:
				for _, fe := range vErr.Fields {
					fields = append(fields, fe.Field)
				}
			default:
				t.Fatalf("unexpected error %T: %v", err, err)
			}
			assert.Contains(t, fields, tt.field)

			// nothing reached the network
			assert.Zero(t, f.raster.Calls)
			assert.Zero(t, f.storage.Puts)
		})
	}
}

func TestService_SaveNonOwner(t *testing.T) {
	f := setup(t)
	public := testutil.CreateTactic(t, f.repo, f.coach, "Public", true)
	private := testutil.CreateTactic(t, f.repo, f.coach, "Private", false)

	data := validSave("Hijack")
	data.ID = public.ID
	_, err := f.svc.Save(context.Background(), f.other.ID, data)
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	data.ID = private.ID
	_, err = f.svc.Save(context.Background(), f.other.ID, data)
	assert.Equal(t, tactic.ErrNotFound, errors.Cause(err))

	// untouched
	got, err := f.repo.GetTacticByID(context.Background(), public.ID)
	require.NoError(t, err)
	assert.Equal(t, public, got)
	assert.Zero(t, f.storage.Puts)
}

func TestService_SaveFailures(t *testing.T) {
	t.Run("rasterizer", func(t *testing.T) {
		f := setup(t)
		f.raster.Err = testutil.ErrBoom
		_, err := f.svc.Save(context.Background(), f.coach.ID, validSave("T"))
		assert.Equal(t, testutil.ErrBoom, errors.Cause(err))
		assert.Zero(t, f.storage.Puts)
	})

	t.Run("upload", func(t *testing.T) {
		f := setup(t)
		orig := testutil.CreateTactic(t, f.repo, f.coach, "Orig", false)
		f.storage.PutErr = testutil.ErrBoom

		data := validSave("Changed")
		data.ID = orig.ID
		_, err := f.svc.Save(context.Background(), f.coach.ID, data)
		assert.Equal(t, testutil.ErrBoom, errors.Cause(err))

		got, err := f.repo.GetTacticByID(context.Background(), orig.ID)
		require.NoError(t, err)
		assert.Equal(t, orig, got)
	})

	t.Run("record write removes upload", func(t *testing.T) {
		f := setup(t)
		f.svc = tactic.NewService(failingRepo{f.repo}, f.storage, f.raster, mustValidator(), f.logger)

		_, err := f.svc.Save(context.Background(), f.coach.ID, validSave("T"))
		assert.Equal(t, testutil.ErrBoom, errors.Cause(err))
		assert.Equal(t, 1, f.storage.Puts)
		assert.Len(t, f.storage.Deletes, 1)
		assert.Zero(t, f.storage.Len())
	})

	t.Run("failed cleanup is logged", func(t *testing.T) {
		f := setup(t)
		f.storage.DelErr = testutil.ErrBoom
		f.svc = tactic.NewService(failingRepo{f.repo}, f.storage, f.raster, mustValidator(), f.logger)

		_, err := f.svc.Save(context.Background(), f.coach.ID, validSave("T"))
		assert.Equal(t, testutil.ErrBoom, errors.Cause(err))
		assert.Len(t, f.logger.Messages, 1)
	})
}

func TestService_Clone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := testutil.CreateTactic(t, f.repo, f.coach, "Zone press", true, arrow(1, 2, 3, 4))
	private := testutil.CreateTactic(t, f.repo, f.coach, "Secret", false)

	clone, err := f.svc.Clone(ctx, f.other.ID, src.ID)
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, f.other.ID, clone.OwnerID)
	assert.Equal(t, "Zone press (copy)", clone.Title)
	assert.Equal(t, src.Category, clone.Category)
	assert.Equal(t, src.Description, clone.Description)
	assert.Equal(t, src.Canvas, clone.Canvas)
	assert.False(t, clone.IsPublic)
	assert.Contains(t, clone.ImageURL, "http://media.test/"+f.other.ID+"/")

	// the clone is the viewer's own, editable record
	v, err := f.svc.Load(ctx, f.other.ID, clone.ID)
	require.NoError(t, err)
	assert.False(t, v.ReadOnly)

	// source untouched
	got, err := f.repo.GetTacticByID(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	// owners may clone their own tactics too
	own, err := f.svc.Clone(ctx, f.coach.ID, private.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret (copy)", own.Title)

	_, err = f.svc.Clone(ctx, f.other.ID, private.ID)
	assert.Equal(t, tactic.ErrNotFound, errors.Cause(err))
}

func TestService_CloneFailureRemovesUpload(t *testing.T) {
	f := setup(t)
	src := testutil.CreateTactic(t, f.repo, f.coach, "Src", true)
	f.svc = tactic.NewService(failingRepo{f.repo}, f.storage, f.raster, mustValidator(), f.logger)

	_, err := f.svc.Clone(context.Background(), f.other.ID, src.ID)
	assert.Equal(t, testutil.ErrBoom, errors.Cause(err))
	assert.Zero(t, f.storage.Len())
}

func TestService_Render(t *testing.T) {
	f := setup(t)
	src := testutil.CreateTactic(t, f.repo, f.coach, "Src", false, arrow(1, 2, 3, 4))

	tac, img, err := f.svc.Render(context.Background(), f.coach.ID, src.ID)
	require.NoError(t, err)
	assert.Equal(t, src.ID, tac.ID)
	assert.Equal(t, []byte("png:1"), img)

	_, _, err = f.svc.Render(context.Background(), f.other.ID, src.ID)
	assert.Equal(t, tactic.ErrNotFound, errors.Cause(err))
}

func TestImageKey(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	assert.Equal(t, "abc/1700000000123.png", tactic.ImageKey("abc", ts))
}

func mustValidator() *validator.Validate {
	validate, _ := testutil.NewValidator()
	return validate
}
