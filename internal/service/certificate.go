package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"leave-manager-bot/internal/models"
)

// CertificateStore keeps copies of medical certificates in a managed
// directory.
type CertificateStore struct {
	dir string
	now func() time.Time
}

func NewCertificateStore(dir string) (*CertificateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create certificates directory: %w", err)
	}
	return &CertificateStore{dir: dir, now: time.Now}, nil
}

func (s *CertificateStore) Dir() string {
	return s.dir
}

// FileName builds cert_<ppr>_<leaveID>_<timestamp><ext>. Agents without a
// personnel number use agent<id>.
func (s *CertificateStore) FileName(agent *models.Agent, leaveID uint, src string) string {
	owner := agent.PersonnelNumberOr(fmt.Sprintf("agent%d", agent.ID))
	return fmt.Sprintf("cert_%s_%d_%s%s",
		sanitize(owner), leaveID, s.now().Format("20060102150405"), filepath.Ext(src))
}

// Store copies src into the managed directory and returns the new path.
func (s *CertificateStore) Store(agent *models.Agent, leaveID uint, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open certificate: %w", err)
	}
	defer in.Close()

	dest := filepath.Join(s.dir, s.FileName(agent, leaveID, src))
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create certificate copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to copy certificate: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to copy certificate: %w", err)
	}
	return dest, nil
}

// Remove deletes a stored certificate. A missing file is not an error.
func (s *CertificateStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sanitize(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '/' || r == '\\' || r == ' ' || r == ':' {
			out[i] = '-'
		}
	}
	return string(out)
}
