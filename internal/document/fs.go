package document

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"crm-backend/internal/apperr"
	"crm-backend/internal/logging"
)

// FSStore keeps documents under root/<client key>/.
type FSStore struct {
	root string
	log  logging.Logger
}

func NewFSStore(root string, log logging.Logger) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.Internal(err)
	}
	return &FSStore{root: root, log: log}, nil
}

// dir resolves the client folder, moving a legacy id-named folder to
// the name-based one when both apply.
func (s *FSStore) dir(ref Ref, create bool) (string, error) {
	key := ref.Key()
	if key == "" {
		return "", apperr.InvalidInput(nil).WithMessage("Client reference is empty")
	}
	folder := filepath.Join(s.root, key)
	if legacy := ref.LegacyKey(); legacy != "" {
		legacyFolder := filepath.Join(s.root, legacy)
		if info, err := os.Stat(legacyFolder); err == nil && info.IsDir() {
			if _, err := os.Stat(folder); os.IsNotExist(err) {
				if err := os.Rename(legacyFolder, folder); err != nil {
					s.log.Warn(context.Background(), "documents: folder migration failed", "from", legacy, "to", key, "error", err)
					folder = legacyFolder
				}
			}
		}
	}
	if create {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return "", apperr.Internal(err)
		}
	}
	return folder, nil
}

func (s *FSStore) Save(ctx context.Context, ref Ref, filename, contentType string, r io.Reader) (Document, error) {
	folder, err := s.dir(ref, true)
	if err != nil {
		return Document{}, err
	}
	path := filepath.Join(folder, filename)
	f, err := os.Create(path)
	if err != nil {
		return Document{}, apperr.Internal(err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Document{}, apperr.Internal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, apperr.Internal(err)
	}
	return Document{Name: filename, Category: CategoryOf(filename), Size: n, ModTime: info.ModTime()}, nil
}

func (s *FSStore) List(ctx context.Context, ref Ref) ([]Document, error) {
	folder, err := s.dir(ref, false)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, Document{
			Name:     e.Name(),
			Category: CategoryOf(e.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func (s *FSStore) Open(ctx context.Context, ref Ref, filename string) (io.ReadCloser, error) {
	if filename != SafeFileName(filename) || filename != filepath.Base(filename) {
		return nil, apperr.InvalidInput(nil).WithMessage("Invalid document name")
	}
	folder, err := s.dir(ref, false)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(folder, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound(err).WithMessage("Document not found")
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, ref Ref, filename string) error {
	if filename != SafeFileName(filename) || filename != filepath.Base(filename) {
		return apperr.InvalidInput(nil).WithMessage("Invalid document name")
	}
	folder, err := s.dir(ref, false)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(folder, filename)); err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound(err).WithMessage("Document not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *FSStore) DeleteAll(ctx context.Context, ref Ref) error {
	folder, err := s.dir(ref, false)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(folder); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
