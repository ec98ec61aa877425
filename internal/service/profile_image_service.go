package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/internal/storage"
	"go-timetable-admin/internal/util"
	"go-timetable-admin/pkg/apierror"
)

const (
	profileImageSize    = 256
	profileImageQuality = 90
	sniffLength         = 512
	// maxImagePixels bounds the decoded bitmap; the header is checked
	// before any pixel data is allocated.
	maxImagePixels = 40_000_000
)

var ErrImageTooLarge = apierror.New("IMAGE_TOO_LARGE", "image dimensions are too large", "image", http.StatusRequestEntityTooLarge)

type profileImageUserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	UpdateProfileImage(ctx context.Context, id int64, imagePath string) error
}

type ProfileImageService struct {
	store        storage.Store
	users        profileImageUserStore
	activity     ActivityLogger
	allowedTypes map[string]struct{}
}

func NewProfileImageService(store storage.Store, users profileImageUserStore, activity ActivityLogger, allowedTypes []string) *ProfileImageService {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, mimeType := range allowedTypes {
		cleaned := strings.ToLower(strings.TrimSpace(mimeType))
		if cleaned != "" {
			allowed[cleaned] = struct{}{}
		}
	}

	return &ProfileImageService{store: store, users: users, activity: activity, allowedTypes: allowed}
}

// Upload replaces the user's avatar with a square JPEG rendition of src.
// Only the user themself or an admin may change it.
func (s *ProfileImageService) Upload(ctx context.Context, actor model.Identity, userID int64, src io.Reader) (model.User, error) {
	if actor.UserID != userID && actor.Role != string(model.RoleAdmin) {
		return model.User{}, model.ErrForbidden
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	reader := bufio.NewReaderSize(src, sniffLength)
	head, err := reader.Peek(sniffLength)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return model.User{}, err
	}
	if len(head) == 0 {
		return model.User{}, apierror.BadRequest("image is empty", "image")
	}

	mimeType := util.SniffMIME(head)
	if _, ok := s.allowedTypes[mimeType]; !ok || !util.IsImageMIME(mimeType) {
		return model.User{}, apierror.New("UNSUPPORTED_MEDIA_TYPE", "image type is not allowed", mimeType, http.StatusUnsupportedMediaType)
	}

	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(reader, &header))
	if err != nil {
		return model.User{}, apierror.BadRequest("image could not be decoded", err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return model.User{}, apierror.BadRequest("image has no pixels", "image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return model.User{}, ErrImageTooLarge
	}

	decoded, _, err := image.Decode(io.MultiReader(&header, reader))
	if err != nil {
		return model.User{}, apierror.BadRequest("image could not be decoded", err.Error())
	}

	name := uuid.NewString() + ".jpg"
	if err := s.writeAvatar(name, squareThumbnail(decoded, profileImageSize)); err != nil {
		return model.User{}, err
	}

	if err := s.users.UpdateProfileImage(ctx, userID, name); err != nil {
		s.RemoveImage(name)
		return model.User{}, err
	}

	if user.ProfileImage != "" {
		s.RemoveImage(user.ProfileImage)
	}
	user.ProfileImage = name

	if s.activity != nil {
		actorID := actor.UserID
		if err := s.activity.Log(ctx, model.ActivityEntry{
			UserID:      &actorID,
			Action:      model.ActionProfileImageUpdate,
			Description: "Updated profile image for user: " + user.Username,
			IPAddress:   actor.IP,
			Timestamp:   time.Now().UTC(),
		}); err != nil {
			slog.Warn("failed to record profile image activity", "user_id", userID, "error", err)
		}
	}

	return user, nil
}

// Open returns a stored avatar for serving.
func (s *ProfileImageService) Open(name string) (*os.File, fs.FileInfo, error) {
	info, err := s.store.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, apierror.NotFound("profile image not found", name)
		}
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, apierror.NotFound("profile image not found", name)
	}

	file, err := s.store.OpenForRead(name)
	if err != nil {
		return nil, nil, err
	}
	return file, info, nil
}

func (s *ProfileImageService) RemoveImage(name string) {
	if err := s.store.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove profile image", "file", name, "error", err)
	}
}

func (s *ProfileImageService) writeAvatar(name string, img image.Image) error {
	out, err := s.store.OpenForWrite(name)
	if err != nil {
		return fmt.Errorf("create profile image: %w", err)
	}

	encodeErr := jpeg.Encode(out, img, &jpeg.Options{Quality: profileImageQuality})
	closeErr := out.Close()
	if encodeErr != nil || closeErr != nil {
		s.RemoveImage(name)
		return fmt.Errorf("encode profile image: %w", errors.Join(encodeErr, closeErr))
	}
	return nil
}

// squareThumbnail center-crops src to a square and scales it to size x size.
func squareThumbnail(src image.Image, size int) image.Image {
	bounds := src.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}

	x0 := bounds.Min.X + (bounds.Dx()-side)/2
	y0 := bounds.Min.Y + (bounds.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}
