package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/ratbuild/internal/codes"
)

// Stripper removes symbols from an executable in place.
type Stripper interface {
	Strip(ctx context.Context, path string) error
}

// Relocation is the outcome of a successful Relocate.
type Relocation struct {
	Source      string
	Destination string
	// Unchanged is set when the destination already held identical content.
	Unchanged bool
}

// Relocate copies the spec's output to its destination, applying the post
// processing step. Running it twice against the same output yields the same
// file. Libraries are never stripped: the foreign loader may need their symbols.
func Relocate(ctx context.Context, spec Spec, stripper Stripper) (*Relocation, error) {
	src, err := locate(spec)
	if err != nil {
		return nil, err
	}

	if spec.PostProcess == Strip && stripper == nil {
		return nil, codes.New(codes.RelocationFailed, spec.Target, "strip", errors.New("no stripper configured"))
	}

	dir := filepath.Dir(spec.Destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, codes.New(codes.RelocationFailed, spec.Target, "relocate", fmt.Errorf("failed to create destination directory: %w", err))
	}

	staged, err := stage(src, dir)
	if err != nil {
		return nil, codes.New(codes.RelocationFailed, spec.Target, "relocate", fmt.Errorf("failed to copy %s: %w", src, err))
	}
	defer os.Remove(staged)

	if spec.PostProcess == Strip {
		if err := stripper.Strip(ctx, staged); err != nil {
			return nil, codes.New(codes.RelocationFailed, spec.Target, "strip", err)
		}
	}

	if same, _ := sameContent(staged, spec.Destination); same {
		// content matches; the mode may still be stale
		if err := syncMode(staged, spec.Destination); err != nil {
			return nil, codes.New(codes.RelocationFailed, spec.Target, "relocate", fmt.Errorf("failed to update mode: %w", err))
		}

		return &Relocation{Source: src, Destination: spec.Destination, Unchanged: true}, nil
	}

	if err := os.Rename(staged, spec.Destination); err != nil {
		return nil, codes.New(codes.RelocationFailed, spec.Target, "relocate", fmt.Errorf("failed to move into place: %w", err))
	}

	return &Relocation{Source: src, Destination: spec.Destination}, nil
}

// locate picks the primary output, or the fallback when the primary is missing.
func locate(spec Spec) (string, error) {
	primary := spec.Primary()
	if primary == "" {
		return "", codes.New(codes.ArtifactNotFound, spec.Target, "relocate", errors.New("no compiler outputs declared"))
	}

	if isFile(primary) {
		return primary, nil
	}

	if spec.Fallback != "" && isFile(spec.Fallback) {
		return spec.Fallback, nil
	}

	missing := primary
	if spec.Fallback != "" {
		missing = primary + " or " + spec.Fallback
	}

	return "", codes.New(codes.ArtifactNotFound, spec.Target, "relocate", fmt.Errorf("%s does not exist", missing))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// stage copies src to a temporary file in dir and returns its path.
func stage(src, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, ".ratbuild-*")
	if err != nil {
		return "", err
	}

	tmp.Close()

	if err := copyFile(src, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

func sameContent(a, b string) (bool, error) {
	ha, err := HashFile(a)
	if err != nil {
		return false, err
	}

	hb, err := HashFile(b)
	if err != nil {
		return false, err
	}

	return ha == hb, nil
}

// syncMode gives dst the permission bits of src when they differ.
func syncMode(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return err
	}

	if srcInfo.Mode().Perm() == dstInfo.Mode().Perm() {
		return nil
	}

	return os.Chmod(dst, srcInfo.Mode().Perm())
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}

	if err := dstFile.Close(); err != nil {
		return err
	}

	// Preserve file permissions
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, srcInfo.Mode())
}
