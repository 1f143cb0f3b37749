package delivery

import (
	"context"
	"path/filepath"

	"clipress/internal/fileutil"
)

// Local moves artifacts into <root>/<job-id>/.
type Local struct {
	Root string
}

// NewLocal returns a Local deliverer rooted at root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

// Deliver moves the video and, when present, the thumbnail.
func (l *Local) Deliver(ctx context.Context, artifact Artifact) (Delivered, error) {
	if err := ctx.Err(); err != nil {
		return Delivered{}, err
	}
	dir := filepath.Join(l.Root, artifact.JobID)
	target := filepath.Join(dir, filepath.Base(artifact.VideoPath))
	if err := fileutil.MoveFile(artifact.VideoPath, target); err != nil {
		return Delivered{}, &Error{Mode: "local", Err: err}
	}
	out := Delivered{Location: target}
	if artifact.ThumbnailPath != "" {
		thumb := filepath.Join(dir, filepath.Base(artifact.ThumbnailPath))
		if err := fileutil.MoveFile(artifact.ThumbnailPath, thumb); err != nil {
			return out, &Error{Mode: "local", Err: err}
		}
		out.ThumbnailLocation = thumb
	}
	return out, nil
}
