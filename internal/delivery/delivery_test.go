package delivery

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"clipress/internal/config"
	"clipress/internal/services"
)

func writeArtifact(t *testing.T, dir string) Artifact {
	t.Helper()
	video := filepath.Join(dir, "work", "clip_compressed.mp4")
	thumb := filepath.Join(dir, "work", "clip_compressed.jpg")
	if err := os.MkdirAll(filepath.Dir(video), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(video, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(thumb, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	return Artifact{JobID: "job-1", UserID: "alice", VideoPath: video, ThumbnailPath: thumb}
}

func TestLocalDeliverMovesFiles(t *testing.T) {
	dir := t.TempDir()
	artifact := writeArtifact(t, dir)
	out := filepath.Join(dir, "output")

	got, err := NewLocal(out).Deliver(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if want := filepath.Join(out, "job-1", "clip_compressed.mp4"); got.Location != want {
		t.Fatalf("location = %q, want %q", got.Location, want)
	}
	if got.ThumbnailLocation != filepath.Join(out, "job-1", "clip_compressed.jpg") {
		t.Fatalf("unexpected thumbnail location %q", got.ThumbnailLocation)
	}
	if _, err := os.Stat(artifact.VideoPath); !os.IsNotExist(err) {
		t.Fatalf("expected source moved away")
	}
}

func TestLocalDeliverMissingVideo(t *testing.T) {
	dir := t.TempDir()
	_, err := NewLocal(dir).Deliver(context.Background(), Artifact{JobID: "j", VideoPath: filepath.Join(dir, "nope.mp4")})
	var delivErr *Error
	if !errors.As(err, &delivErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if delivErr.ErrorKind() != "delivery_failed" || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("unexpected classification for %v", err)
	}
	if services.FailureKind(err) != "delivery_failed" {
		t.Fatalf("FailureKind = %q", services.FailureKind(err))
	}
}

type fakePutter struct {
	keys   []string
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.bodies = append(f.bodies, string(data))
	return &s3.PutObjectOutput{}, nil
}

func TestS3DeliverUploadsVideoAndThumbnail(t *testing.T) {
	artifact := writeArtifact(t, t.TempDir())
	putter := &fakePutter{}
	got, err := NewS3WithClient(putter, "media", "/clipress/").Deliver(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Location != "s3://media/clipress/alice/job-1/clip_compressed.mp4" {
		t.Fatalf("unexpected location %q", got.Location)
	}
	if len(putter.keys) != 2 || putter.keys[1] != "clipress/alice/job-1/clip_compressed.jpg" {
		t.Fatalf("unexpected keys %v", putter.keys)
	}
	if putter.bodies[0] != "video-bytes" {
		t.Fatalf("unexpected body %q", putter.bodies[0])
	}
}

func TestS3DeliverWrapsErrors(t *testing.T) {
	artifact := writeArtifact(t, t.TempDir())
	_, err := NewS3WithClient(&fakePutter{err: errors.New("access denied")}, "media", "").Deliver(context.Background(), artifact)
	var delivErr *Error
	if !errors.As(err, &delivErr) || delivErr.Mode != "s3" {
		t.Fatalf("expected s3 delivery error, got %v", err)
	}
}

func TestNewSelectsMode(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	d, err := New(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := d.(*Local); !ok {
		t.Fatalf("expected local deliverer, got %T", d)
	}

	cfg.Delivery.Mode = "ftp"
	if _, err := New(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	cfg.Delivery.Mode = config.DeliveryS3
	cfg.Delivery.S3Bucket = ""
	if _, err := New(context.Background(), &cfg); err == nil {
		t.Fatal("expected error when bucket missing")
	}
}
