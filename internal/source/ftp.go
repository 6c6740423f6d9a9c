package source

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
)

// FTPOptions configures the FTP document drop.
type FTPOptions struct {
	Addr     string
	User     string
	Password string
	Dir      string
	Timeout  time.Duration

	// DestDir receives the downloads. Empty means a new temp directory.
	DestDir string
}

// FTPSource downloads every PDF in a remote directory.
type FTPSource struct {
	opts FTPOptions
}

// NewFTP creates an FTPSource with defaults applied.
func NewFTP(opts FTPOptions) *FTPSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
	}
	if opts.User == "anonymous" && opts.Password == "" {
		opts.Password = "anonymous@"
	}
	if opts.Dir == "" {
		opts.Dir = "/"
	}
	return &FTPSource{opts: opts}
}

// FTPFromConfig builds an FTPSource from configuration.
func FTPFromConfig(cfg config.FTPConfig) *FTPSource {
	return NewFTP(FTPOptions{
		Addr:     cfg.Addr,
		User:     cfg.User,
		Password: cfg.Password,
		Dir:      cfg.Dir,
		Timeout:  time.Duration(cfg.TimeoutSecs) * time.Second,
	})
}

// Documents implements Source. Remote PDFs are downloaded in name order;
// the returned documents point at the local copies.
func (s *FTPSource) Documents(ctx context.Context) ([]model.Document, error) {
	if s.opts.Addr == "" {
		return nil, eris.New("source: ftp addr is required")
	}

	zap.L().Debug("source: ftp connecting", zap.String("addr", s.opts.Addr), zap.String("dir", s.opts.Dir))

	conn, err := ftp.Dial(s.opts.Addr, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "source: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(s.opts.User, s.opts.Password); err != nil {
		return nil, eris.Wrap(err, "source: ftp login")
	}

	names, err := conn.NameList(s.opts.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "source: ftp list %s", s.opts.Dir)
	}

	var remote []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if !strings.EqualFold(path.Ext(n), ".pdf") {
			continue
		}
		if !strings.HasPrefix(n, "/") {
			n = path.Join(s.opts.Dir, n)
		}
		remote = append(remote, n)
	}
	sort.Strings(remote)

	destDir := s.opts.DestDir
	if destDir == "" {
		destDir, err = os.MkdirTemp("", "contact-extractor-ftp-")
		if err != nil {
			return nil, eris.Wrap(err, "source: create temp dir")
		}
	}

	docs := make([]model.Document, 0, len(remote))
	for _, r := range remote {
		if err := ctx.Err(); err != nil {
			return docs, eris.Wrap(err, "source: ftp download cancelled")
		}
		local := filepath.Join(destDir, path.Base(r))
		n, err := retrieve(conn, r, local)
		if err != nil {
			return docs, err
		}
		zap.L().Debug("source: ftp downloaded", zap.String("file", r), zap.Int64("bytes", n))
		docs = append(docs, model.Document{
			Name:     path.Base(r),
			Path:     local,
			MimeType: "application/pdf",
		})
	}

	zap.L().Info("source: ftp documents fetched",
		zap.String("addr", s.opts.Addr),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}

// retrieve copies one remote file to local. Returns bytes written.
func retrieve(conn *ftp.ServerConn, remote, local string) (int64, error) {
	resp, err := conn.Retr(remote)
	if err != nil {
		return 0, eris.Wrapf(err, "source: ftp retrieve %s", remote)
	}
	defer resp.Close() //nolint:errcheck

	file, err := os.Create(local)
	if err != nil {
		return 0, eris.Wrap(err, "source: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, resp)
	if err != nil {
		return n, eris.Wrapf(err, "source: write %s", local)
	}
	return n, nil
}
