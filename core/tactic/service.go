package tactic

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
)

const imageContentType = "image/png"

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("tactic")
)

type (
	Repository interface {
		CreateTactic(ctx context.Context, t Tactic, exec ...core.DBExecutor) (Tactic, error)
		GetTacticByID(ctx context.Context, id string, exec ...core.DBExecutor) (Tactic, error)
		UpdateTactic(ctx context.Context, t Tactic, exec ...core.DBExecutor) (Tactic, error)
	}

	// Rasterizer renders a canvas document to a PNG image.
	Rasterizer interface {
		Rasterize(doc canvas.Document) ([]byte, error)
	}

	Service struct {
		repo     Repository
		storage  core.ObjectStorage
		raster   Rasterizer
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	storage core.ObjectStorage,
	raster Rasterizer,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		storage:  storage,
		raster:   raster,
		validate: validate,
		logger:   logger,
	}
}

// ImageKey returns the object storage key of a preview uploaded now for ownerID.
func ImageKey(ownerID string, now time.Time) string {
	return fmt.Sprintf("%s/%d.png", ownerID, now.UnixMilli())
}

// PreviewKey recovers the object key of a preview uploaded for ownerID from its public URL.
// It is empty when the URL is not one of ownerID's previews.
func PreviewKey(ownerID, imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil || ownerID == "" {
		return ""
	}
	dir, file := path.Split(strings.TrimSuffix(u.Path, "/"))
	if path.Base(dir) != ownerID || path.Ext(file) != ".png" {
		return ""
	}
	return ownerID + "/" + file
}

// New returns the default view of a tactic that does not exist yet.
func (svc *Service) New(viewerID string) View {
	meta := BlankMetadata()
	return View{
		Tactic: Tactic{
			OwnerID:  viewerID,
			Category: meta.Category,
			Canvas:   canvas.NewDocument(),
		},
	}
}

// Load returns the tactic identified by id as seen by viewerID.
// An empty id is not an error: it yields the default, editable view.
// Private tactics of other users are reported as ErrNotFound.
func (svc *Service) Load(ctx context.Context, viewerID, id string) (View, error) {
	id = core.CleanString(id)
	if id == "" {
		return svc.New(viewerID), nil
	}

	t, err := svc.getReadable(ctx, viewerID, id)
	if err != nil {
		return View{}, err
	}
	return View{Tactic: t, ReadOnly: !t.IsOwner(viewerID)}, nil
}

func (svc *Service) getReadable(ctx context.Context, viewerID, id string) (Tactic, error) {
	t, err := svc.repo.GetTacticByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Tactic{}, ErrNotFound
		}
		return Tactic{}, errors.Wrap(err, "finding tactic by ID")
	}
	if !t.CanRead(viewerID) {
		return Tactic{}, ErrNotFound
	}
	if err = t.Canvas.Validate(); err != nil {
		return Tactic{}, errors.Wrapf(err, "tactic %s", t.ID)
	}
	return t, nil
}

// Save creates (empty data.ID) or updates the tactic owned by ownerID.
// The input is validated before any I/O. The canvas is then rendered and uploaded, and the record written last;
// on failure nothing is persisted and the previous record is left untouched.
func (svc *Service) Save(ctx context.Context, ownerID string, data SaveTactic) (Tactic, error) {
	if err := data.Validate(svc.validate); err != nil {
		return Tactic{}, err
	}
	if err := data.Canvas.Validate(); err != nil {
		return Tactic{}, core.NewValidationError(err, core.FieldError{Field: "canvas_data", Error: err.Error()})
	}

	var prevKey string
	now := NowFunc().UTC()
	t := Tactic{
		OwnerID:     ownerID,
		Title:       data.Title,
		Category:    data.Category,
		Description: data.Description,
		IsPublic:    data.IsPublic,
		Canvas:      data.Canvas.Copy(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if data.ID != "" {
		orig, err := svc.repo.GetTacticByID(ctx, data.ID)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return Tactic{}, ErrNotFound
			}
			return Tactic{}, errors.Wrap(err, "finding tactic by ID")
		}
		if !orig.IsOwner(ownerID) {
			if !orig.CanRead(ownerID) {
				return Tactic{}, ErrNotFound
			}
			return Tactic{}, core.ErrForbidden
		}
		t.ID = orig.ID
		t.CreatedAt = orig.CreatedAt
		prevKey = PreviewKey(orig.OwnerID, orig.ImageURL)
	}

	key, err := svc.uploadPreview(ctx, ownerID, &t)
	if err != nil {
		return Tactic{}, err
	}

	var saved Tactic
	if t.ID == "" {
		saved, err = svc.repo.CreateTactic(ctx, t)
	} else {
		saved, err = svc.repo.UpdateTactic(ctx, t)
	}
	if err != nil {
		svc.discardPreview(ctx, key)
		return Tactic{}, errors.Wrap(err, "saving tactic")
	}
	// the replaced preview is no longer referenced
	if prevKey != "" && prevKey != key {
		svc.discardPreview(ctx, prevKey)
	}
	return saved, nil
}

// Clone copies a readable tactic into a new private tactic owned by viewerID. The source is never modified.
func (svc *Service) Clone(ctx context.Context, viewerID, id string) (Tactic, error) {
	src, err := svc.getReadable(ctx, viewerID, core.CleanString(id))
	if err != nil {
		return Tactic{}, err
	}

	now := NowFunc().UTC()
	t := Tactic{
		OwnerID:     viewerID,
		Title:       src.Title + cloneSuffix,
		Category:    src.Category,
		Description: src.Description,
		IsPublic:    false,
		Canvas:      src.Canvas.Copy(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	key, err := svc.uploadPreview(ctx, viewerID, &t)
	if err != nil {
		return Tactic{}, err
	}

	clone, err := svc.repo.CreateTactic(ctx, t)
	if err != nil {
		svc.discardPreview(ctx, key)
		return Tactic{}, errors.Wrap(err, "creating clone")
	}
	return clone, nil
}

// Render rasterizes the canvas of a readable tactic.
func (svc *Service) Render(ctx context.Context, viewerID, id string) (Tactic, []byte, error) {
	t, err := svc.getReadable(ctx, viewerID, core.CleanString(id))
	if err != nil {
		return Tactic{}, nil, err
	}
	img, err := svc.raster.Rasterize(t.Canvas)
	if err != nil {
		return Tactic{}, nil, errors.Wrap(err, "rasterizing canvas")
	}
	return t, img, nil
}

// uploadPreview renders t's canvas, uploads it and sets t.ImageURL. It returns the object key.
func (svc *Service) uploadPreview(ctx context.Context, ownerID string, t *Tactic) (string, error) {
	img, err := svc.raster.Rasterize(t.Canvas)
	if err != nil {
		return "", errors.Wrap(err, "rasterizing canvas")
	}

	key := ImageKey(ownerID, NowFunc())
	url, err := svc.storage.Put(ctx, key, img, imageContentType)
	if err != nil {
		return "", errors.Wrap(err, "uploading preview")
	}
	t.ImageURL = url
	return key, nil
}

func (svc *Service) discardPreview(ctx context.Context, key string) {
	if err := svc.storage.Delete(ctx, key); err != nil {
		svc.logger.Warn("failed to remove orphan preview "+key, errors.Wrap(err, "deleting preview"))
	}
}
