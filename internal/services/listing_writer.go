package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"adboard/market/internal/db"
	"adboard/market/internal/models"
	"adboard/market/internal/notify"
	"adboard/market/internal/storage"
)

const (
	// CatalogPath is the catalog view the writer navigates to.
	CatalogPath = "/"

	MessageListingCreated = "Ad created!"
	MessageListingFailed  = "Failed to create ad"
)

// SubmitPhase is the progress of a submit.
type SubmitPhase int

const (
	PhaseIdle SubmitPhase = iota
	PhaseUploading
	PhasePersisting
	PhaseSuccess
	PhaseFailure
)

func (p SubmitPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhasePersisting:
		return "persisting"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ListingWriter creates listings from the sell view.
type ListingWriter struct {
	documents  db.DocumentStore
	blobs      storage.BlobStore
	notifier   notify.Notifier
	cleanup    IOrphanBlobScheduler
	collection string
	now        func() time.Time
}

// NewListingWriter creates a ListingWriter. cleanup may be nil, in which case a
// blob orphaned by a failed insert is left in place.
func NewListingWriter(documents db.DocumentStore, blobs storage.BlobStore, notifier notify.Notifier, collection string, cleanup IOrphanBlobScheduler) *ListingWriter {
	return &ListingWriter{
		documents:  documents,
		blobs:      blobs,
		notifier:   notifier,
		cleanup:    cleanup,
		collection: collection,
		now:        time.Now,
	}
}

// Open activates the sell view for a page session. A signed-out session is sent
// to the catalog and gets no view.
func (w *ListingWriter) Open(session *SessionStore, nav Navigator) (*SellView, bool) {
	if session.Identity() == nil {
		nav.Navigate(CatalogPath)
		return nil, false
	}
	return &SellView{writer: w, session: session, nav: nav, form: NewListingForm()}, true
}

// SellView is an activated sell view with its form.
type SellView struct {
	writer  *ListingWriter
	session *SessionStore
	nav     Navigator

	mu    sync.Mutex
	form  ListingForm
	phase SubmitPhase
}

// Form returns the current form fields.
func (v *SellView) Form() ListingForm {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.form
}

// SetForm replaces the form fields.
func (v *SellView) SetForm(f ListingForm) {
	v.mu.Lock()
	v.form = f
	v.mu.Unlock()
}

// Phase returns the progress of the last submit.
func (v *SellView) Phase() SubmitPhase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

func (v *SellView) setPhase(p SubmitPhase) {
	v.mu.Lock()
	v.phase = p
	v.mu.Unlock()
}

// Submit uploads the image, if any, and then saves the listing. On success the
// form is reset, the view navigates to the catalog and a success toast is sent.
// On failure the form is kept as entered.
func (v *SellView) Submit(ctx context.Context) (*models.Listing, error) {
	identity := v.session.Identity()
	if identity == nil {
		v.setPhase(PhaseFailure)
		return nil, ErrSignInRequired
	}

	form := v.Form()
	price, err := form.ParsePrice()
	if err != nil {
		return nil, v.fail(ctx, err)
	}

	submittedAt := v.writer.now().UTC()
	imageURL := ""
	uploadedKey := ""
	if form.Image != nil {
		v.setPhase(PhaseUploading)
		uploadedKey = storage.ObjectKey(submittedAt, form.Image.Filename)
		imageURL, err = v.upload(ctx, uploadedKey, form.Image)
		if err != nil {
			return nil, v.fail(ctx, fmt.Errorf("%w: %w", ErrUploadFailed, err))
		}
	}

	v.setPhase(PhasePersisting)
	listing := models.Listing{
		Title:       form.Title,
		Category:    models.Category(form.Category),
		Price:       price,
		Description: form.Description,
		ImageURL:    imageURL,
		SellerID:    identity.UserID,
		CreatedAt:   submittedAt,
	}
	id, err := v.writer.documents.CreateDocument(ctx, v.writer.collection, listing)
	if err != nil {
		if uploadedKey != "" {
			v.writer.scheduleCleanup(ctx, uploadedKey)
		}
		return nil, v.fail(ctx, fmt.Errorf("%w: %w", ErrPersistFailed, err))
	}
	listing.ID = id

	v.mu.Lock()
	v.form.Reset()
	v.phase = PhaseSuccess
	v.mu.Unlock()

	log.WithFields(log.Fields{"page_session": v.session.ID(), "listing_id": id}).Info("Ad created")
	v.nav.Navigate(CatalogPath)
	v.notify(ctx, notify.Success(v.session.ID(), MessageListingCreated))
	return &listing, nil
}

func (v *SellView) upload(ctx context.Context, key string, image *ImageFile) (string, error) {
	body, err := image.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", image.Filename, err)
	}
	defer body.Close()

	handle, err := v.writer.blobs.Upload(ctx, key, body, image.Size, image.ContentType)
	if err != nil {
		return "", err
	}
	url, err := v.writer.blobs.ResolveURL(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("failed to resolve URL of %s: %w", key, err)
	}
	return url, nil
}

func (v *SellView) fail(ctx context.Context, err error) error {
	v.setPhase(PhaseFailure)
	log.WithField("page_session", v.session.ID()).Errorf("Error adding ad: %v", err)
	if !errors.Is(err, context.Canceled) {
		v.notify(ctx, notify.Failure(v.session.ID(), MessageListingFailed))
	}
	return err
}

func (v *SellView) notify(ctx context.Context, n models.Notification) {
	// The toast outlives the request that produced it.
	if err := v.writer.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		log.WithField("page_session", n.SessionID).Errorf("Failed to send notification: %v", err)
	}
}

func (w *ListingWriter) scheduleCleanup(ctx context.Context, key string) {
	if w.cleanup == nil {
		log.WithField("key", key).Warn("Listing not saved; uploaded image left in blob store")
		return
	}
	if err := w.cleanup.ScheduleBlobCleanup(context.WithoutCancel(ctx), key); err != nil {
		log.WithField("key", key).Errorf("Failed to schedule blob cleanup: %v", err)
	}
}
