//go:build cgo

package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultONNXRuntimeVersion is the ONNX runtime release fetched by
// DownloadONNXRuntime. onnxruntime_go v1.7.0 needs a 1.16.x C API.
const DefaultONNXRuntimeVersion = "1.16.3"

// onnxPathEnv overrides the runtime library location. fastembed-go reads it
// too.
const onnxPathEnv = "ONNX_PATH"

// ErrUnsupportedPlatform is returned for platforms without a prebuilt
// runtime release.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// runtimeRelease identifies one prebuilt ONNX runtime archive.
type runtimeRelease struct {
	version string
	goos    string
	goarch  string
}

func currentRelease(version string) runtimeRelease {
	if version == "" {
		version = DefaultONNXRuntimeVersion
	}
	return runtimeRelease{version: version, goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// platform returns the release's platform suffix, e.g. "linux-x64".
func (r runtimeRelease) platform() (string, error) {
	switch r.goos + "/" + r.goarch {
	case "linux/amd64":
		return "linux-x64", nil
	case "linux/arm64":
		return "linux-aarch64", nil
	case "darwin/amd64":
		return "osx-x86_64", nil
	case "darwin/arm64":
		return "osx-arm64", nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, r.goos, r.goarch)
}

func (r runtimeRelease) url() (string, error) {
	p, err := r.platform()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%[1]s/onnxruntime-%[2]s-%[1]s.tgz",
		r.version, p), nil
}

// libDir is the archive directory holding the shared libraries.
func (r runtimeRelease) libDir() string {
	p, _ := r.platform()
	return fmt.Sprintf("onnxruntime-%s-%s/lib", p, r.version)
}

func libraryName(goos string) string {
	if goos == "darwin" {
		return "libonnxruntime.dylib"
	}
	return "libonnxruntime.so"
}

// runtimeDir is the managed install location.
func runtimeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "notaclin", "lib")
}

// GetONNXLibraryPath returns ONNX_PATH when set, else the managed install
// if present, else "".
func GetONNXLibraryPath() string {
	if p := os.Getenv(onnxPathEnv); p != "" {
		return p
	}
	managed := filepath.Join(runtimeDir(), libraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

// DownloadONNXRuntime installs the runtime for this platform into the
// managed directory. An empty version means DefaultONNXRuntimeVersion.
func DownloadONNXRuntime(ctx context.Context, version string) error {
	return installRuntime(ctx, http.DefaultClient, currentRelease(version), runtimeDir())
}

func installRuntime(ctx context.Context, client *http.Client, rel runtimeRelease, dest string) error {
	url, err := rel.url()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(dest, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	return unpackLibs(resp.Body, rel.libDir(), libraryName(rel.goos), dest)
}

// unpackLibs copies the regular files and symlinks directly under libDir
// in the gzipped tar r into dest. It fails when lib, or a versioned
// lib.N.N.N, is not among them.
func unpackLibs(r io.Reader, libDir, lib, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	defer gz.Close()

	found := false
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		if path.Dir(name) != libDir {
			continue
		}
		base := path.Base(name)
		target := filepath.Join(dest, base)

		switch hdr.Typeflag {
		case tar.TypeSymlink:
			if strings.Contains(hdr.Linkname, "/") {
				continue
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("linking %s: %w", base, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return err
			}
		default:
			continue
		}
		if base == lib || strings.HasPrefix(base, lib+".") {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("%s missing from archive", lib)
	}
	return nil
}

func writeFile(target string, r io.Reader) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return f.Close()
}

// setONNXPathEnv is swapped out in tests.
var setONNXPathEnv = func(p string) error {
	return os.Setenv(onnxPathEnv, p)
}

// EnsureONNXRuntime returns the runtime library path, downloading the
// default release first when none is installed, and exports it as
// ONNX_PATH.
func EnsureONNXRuntime(ctx context.Context) (string, error) {
	lib := GetONNXLibraryPath()
	if lib == "" {
		if err := DownloadONNXRuntime(ctx, ""); err != nil {
			return "", fmt.Errorf("no ONNX runtime found and download failed (run 'ncl init' or set %s): %w", onnxPathEnv, err)
		}
		if lib = GetONNXLibraryPath(); lib == "" {
			return "", errors.New("ONNX runtime downloaded but library not found")
		}
	}
	if err := setONNXPathEnv(lib); err != nil {
		return "", fmt.Errorf("setting %s: %w", onnxPathEnv, err)
	}
	return lib, nil
}
