package document

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"sync"

	"crm-backend/internal/apperr"
	"crm-backend/internal/history"
	"crm-backend/internal/logging"
	"crm-backend/internal/worker"
)

// Upload is one incoming file of a batch.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult reports the outcome per file. Failed files are skipped,
// they never abort the batch.
type UploadResult struct {
	Filename string   `json:"filename"`
	Stored   string   `json:"stored,omitempty"`
	Link     string   `json:"link,omitempty"`
	Error    string   `json:"error,omitempty"`
	Document Document `json:"-"`
}

// Service runs document operations against a Store, fanning batch
// uploads out through the worker pool and recording ledger entries.
type Service struct {
	store  Store
	pool   *worker.Pool
	ledger history.Service
	log    logging.Logger
}

func NewService(store Store, pool *worker.Pool, ledger history.Service, log logging.Logger) *Service {
	return &Service{store: store, pool: pool, ledger: ledger, log: log}
}

// Upload validates each file against the category and stores the batch
// concurrently. Results come back in input order.
func (s *Service) Upload(ctx context.Context, ref Ref, categoryName, actor string, files []Upload) ([]UploadResult, error) {
	cat, ok := CategoryByName(categoryName)
	if !ok {
		return nil, apperr.InvalidInput(nil).WithMessage("Unknown document category")
	}
	if len(files) == 0 {
		return nil, apperr.InvalidInput(nil).WithMessage("No files uploaded")
	}

	results := make([]UploadResult, len(files))
	var wg sync.WaitGroup
	for i, up := range files {
		results[i].Filename = up.Filename
		if !cat.Allows(up.Filename) {
			results[i].Error = "extension not allowed for category " + cat.Name
			continue
		}
		stored := cat.Apply(up.Filename)
		if stored == "" || stored == cat.Prefix {
			results[i].Error = "empty filename"
			continue
		}
		wg.Add(1)
		up := up
		res := &results[i]
		accepted := s.pool.Submit(func(taskCtx context.Context) error {
			defer wg.Done()
			doc, err := s.store.Save(taskCtx, ref, stored, up.ContentType, bytes.NewReader(up.Data))
			if err != nil {
				res.Error = err.Error()
				return err
			}
			res.Stored = doc.Name
			res.Link = doc.Link
			res.Document = doc
			return nil
		})
		if !accepted {
			wg.Done()
			res.Error = "upload queue unavailable"
		}
	}
	wg.Wait()

	saved := 0
	for _, r := range results {
		if r.Stored != "" {
			saved++
		}
	}
	if saved > 0 {
		s.record(ctx, ref, history.ActionDocumentUploaded, actor, describeBatch(results, saved))
	}
	return results, nil
}

func (s *Service) List(ctx context.Context, ref Ref) ([]Document, error) {
	return s.store.List(ctx, ref)
}

// Download opens the file and records the access.
func (s *Service) Download(ctx context.Context, ref Ref, filename, actor string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, ref, filename)
	if err != nil {
		return nil, err
	}
	s.record(ctx, ref, history.ActionDocumentDownloaded, actor, filename)
	return rc, nil
}

func (s *Service) Delete(ctx context.Context, ref Ref, filename string) error {
	return s.store.Delete(ctx, ref, filename)
}

func (s *Service) DeleteAll(ctx context.Context, ref Ref) error {
	return s.store.DeleteAll(ctx, ref)
}

// Archive bundles every document of the client into a zip. Files that
// fail to read are skipped.
func (s *Service) Archive(ctx context.Context, ref Ref) ([]byte, error) {
	docs, err := s.store.List(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperr.NotFound(nil).WithMessage("No documents for client")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, doc := range docs {
		rc, err := s.store.Open(ctx, ref, doc.Name)
		if err != nil {
			s.log.Warn(ctx, "documents: archive skipping file", "file", doc.Name, "error", err)
			continue
		}
		w, err := zw.Create(doc.Name)
		if err == nil {
			_, err = io.Copy(w, rc)
		}
		rc.Close()
		if err != nil {
			zw.Close()
			return nil, apperr.Internal(err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, apperr.Internal(err)
	}
	return buf.Bytes(), nil
}

func (s *Service) record(ctx context.Context, ref Ref, action, actor, detail string) {
	if s.ledger == nil {
		return
	}
	_, err := s.ledger.Append(ctx, history.Entry{
		ClientID: ref.ID,
		Name:     ref.Name,
		Action:   action,
		Actor:    actor,
		Detail:   detail,
	})
	if err != nil {
		s.log.Warn(ctx, "documents: ledger entry failed", "action", action, "error", err)
	}
}

func describeBatch(results []UploadResult, saved int) string {
	if saved == 1 {
		for _, r := range results {
			if r.Stored != "" {
				return r.Stored
			}
		}
	}
	names := ""
	for _, r := range results {
		if r.Stored == "" {
			continue
		}
		if names != "" {
			names += ", "
		}
		names += r.Stored
	}
	return names
}
