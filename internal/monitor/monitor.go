// Package monitor orchestrates a full monitoring run: fetch the listings,
// detect changes against the stored snapshot, download and mirror PDFs,
// regenerate the JS data files, notify, and persist the new snapshot.
package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/config"
	"github.com/wangwingzero/caac-monitor/internal/document"
	"github.com/wangwingzero/caac-monitor/internal/notify"
	"github.com/wangwingzero/caac-monitor/internal/state"
)

// notifyWindowDays caps change notifications to recently dated documents so
// a first run against a populated site does not spam every channel.
const notifyWindowDays = 30

// Fetcher retrieves category listings and resolves PDF links.
type Fetcher interface {
	FetchCategories(ctx context.Context, categoryIDs []string) (map[string][]document.Document, map[string]error)
	PDFLink(ctx context.Context, d document.Document) (string, error)
}

// PDFSaver stores a PDF locally and returns the saved path.
type PDFSaver interface {
	Fetch(ctx context.Context, pdfURL, filename string) (string, error)
	Dir() string
}

// Uploader mirrors a local file to remote storage.
type Uploader interface {
	Enabled() bool
	UploadFile(ctx context.Context, localPath, key string) (string, error)
}

// Sender fans a message out to the configured notification channels.
type Sender interface {
	Configured() bool
	SendAll(ctx context.Context, msg notify.Message) map[string]error
}

// Exporter regenerates the JS data files from the current fetch.
type Exporter interface {
	Sync(current map[string][]document.Document, pdfURLs map[string]string) (map[string]int, error)
}

// Summary is the outcome of one run.
type Summary struct {
	RunID          string
	NewCount       int
	UpdatedCount   int
	Downloaded     int
	Uploaded       int
	Notified       int
	Saved          bool
	CategoryErrors map[string]error
	// Groups holds the documents the run reported, for display.
	Groups []notify.CategoryGroup
}

// Monitor wires the collaborators for a run.
type Monitor struct {
	cfg        *config.Config
	store      *state.Store
	detector   *state.Detector
	fetcher    Fetcher
	downloader PDFSaver
	uploader   Uploader
	exporter   Exporter
	notifier   Sender
	log        *zap.Logger

	now func() time.Time // overridable in tests
}

// New assembles a monitor. uploader, exporter, and notifier may be nil when
// the corresponding step is not configured.
func New(cfg *config.Config, store *state.Store, fetcher Fetcher, downloader PDFSaver, uploader Uploader, exporter Exporter, notifier Sender, log *zap.Logger) *Monitor {
	return &Monitor{
		cfg:        cfg,
		store:      store,
		detector:   state.NewDetector(log),
		fetcher:    fetcher,
		downloader: downloader,
		uploader:   uploader,
		exporter:   exporter,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// Run executes one monitoring pass. The stored snapshot is only replaced
// when at least one category fetched successfully and the run is not a dry
// run; a fully failed fetch leaves the previous snapshot untouched.
func (m *Monitor) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := m.log.With(zap.String("run_id", summary.RunID))
	log.Info("run started",
		zap.Strings("categories", m.cfg.Categories),
		zap.Bool("dry_run", m.cfg.DryRun))

	snap, err := m.store.Load()
	if err != nil {
		return summary, fmt.Errorf("failed to load snapshot: %w", err)
	}

	current, fetchErrs := m.fetcher.FetchCategories(ctx, m.cfg.Categories)
	summary.CategoryErrors = fetchErrs
	for catID, ferr := range fetchErrs {
		log.Warn("category could not be checked",
			zap.String("category", document.CategoryName(catID)),
			zap.Error(ferr))
	}
	if len(current) == 0 {
		// Nothing was checked, so nothing can be concluded; keep the
		// previous snapshot as-is.
		return summary, fmt.Errorf("all %d categories failed to fetch", len(m.cfg.Categories))
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	report := m.detector.Detect(snap, current)
	summary.NewCount = report.NewCount()
	summary.UpdatedCount = report.UpdatedCount()

	groups := m.notableGroups(report, current)
	summary.Groups = groups

	var attachments []string
	pdfURLs := make(map[string]string)
	if !m.cfg.DryRun && !m.cfg.NoDownload && m.downloader != nil {
		attachments = m.fetchPDFs(ctx, log, groups, pdfURLs, summary)
	}

	if !m.cfg.DryRun && m.exporter != nil {
		if _, err := m.exporter.Sync(current, pdfURLs); err != nil {
			log.Error("js export failed", zap.Error(err))
		}
	}

	m.sendNotification(ctx, log, groups, attachments, summary)

	if m.cfg.DryRun {
		log.Info("dry run, snapshot not saved")
	} else {
		snap.LastCheck = m.now().Format(time.RFC3339)
		snap.Documents = report.Merged
		if err := m.store.Save(snap); err != nil {
			return summary, err
		}
		summary.Saved = true
	}

	log.Info("run finished",
		zap.Int("new", summary.NewCount),
		zap.Int("updated", summary.UpdatedCount),
		zap.Int("downloaded", summary.Downloaded),
		zap.Int("category_errors", len(fetchErrs)))
	return summary, nil
}

// notableGroups picks the documents worth reporting. With --days set the run
// works as a listing filter: everything published within the window counts,
// changed or not. Otherwise notable means added or updated this run, capped
// to the notification window.
func (m *Monitor) notableGroups(report *state.ChangeReport, current map[string][]document.Document) []notify.CategoryGroup {
	var groups []notify.CategoryGroup
	now := m.now()

	for _, catID := range sortedCategoryIDs(current) {
		var docs []document.Document
		if m.cfg.Days > 0 {
			docs = state.FilterByDays(current[catID], m.cfg.Days, now)
		} else {
			changes := report.ByCategory[catID]
			docs = append(docs, changes.Added...)
			for _, u := range changes.Updated {
				docs = append(docs, u.New)
			}
			docs = state.FilterByDays(docs, notifyWindowDays, now)
		}
		if len(docs) > 0 {
			groups = append(groups, notify.CategoryGroup{
				Name:      document.CategoryName(catID),
				Documents: docs,
			})
		}
	}
	return groups
}

// fetchPDFs downloads the PDF for each notable document, mirrors it to
// remote storage when an uploader is configured, and records the result in
// the download index. Returns local paths for use as mail attachments.
func (m *Monitor) fetchPDFs(ctx context.Context, log *zap.Logger, groups []notify.CategoryGroup, pdfURLs map[string]string, summary *Summary) []string {
	index := m.store.LoadIndex()
	var attachments []string
	indexDirty := false

	for _, group := range groups {
		for _, doc := range group.Documents {
			if ctx.Err() != nil {
				break
			}
			pdfURL := doc.PDFURL
			if pdfURL == "" {
				link, err := m.fetcher.PDFLink(ctx, doc)
				if err != nil {
					log.Warn("pdf link lookup failed",
						zap.String("title", doc.Title), zap.Error(err))
					continue
				}
				pdfURL = link
			}
			if pdfURL == "" {
				continue
			}

			filename := document.PDFFileName(doc)
			savedPath, err := m.downloader.Fetch(ctx, pdfURL, filename)
			if err != nil {
				log.Warn("pdf download failed",
					zap.String("url", pdfURL), zap.Error(err))
				continue
			}
			summary.Downloaded++
			attachments = append(attachments, savedPath)
			index[doc.URL] = state.IndexEntry{
				RelativePath: filename,
				UpdatedAt:    m.now().Format(time.RFC3339),
			}
			indexDirty = true

			if m.uploader != nil && m.uploader.Enabled() {
				key := uploadKey(savedPath)
				publicURL, err := m.uploader.UploadFile(ctx, savedPath, key)
				if err != nil {
					log.Warn("upload failed", zap.String("key", key), zap.Error(err))
					continue
				}
				summary.Uploaded++
				pdfURLs[doc.URL] = publicURL
			}
		}
	}

	if indexDirty {
		if err := m.store.SaveIndex(index); err != nil {
			log.Warn("failed to save download index", zap.Error(err))
		}
	}
	return attachments
}

func (m *Monitor) sendNotification(ctx context.Context, log *zap.Logger, groups []notify.CategoryGroup, attachments []string, summary *Summary) {
	if m.cfg.DryRun || m.cfg.NoNotify || m.notifier == nil || !m.notifier.Configured() {
		return
	}
	if len(groups) == 0 && !m.cfg.ForceNotify {
		return
	}

	msg := notify.FormatUpdate(groups, m.now())
	msg.Attachments = attachments
	results := m.notifier.SendAll(ctx, msg)
	summary.Notified = notify.Succeeded(results)
	for name, err := range results {
		if err != nil {
			log.Error("notification failed", zap.String("channel", name), zap.Error(err))
		}
	}
}

// uploadKey derives the remote object key from a local download path,
// normalizing the separator for object storage.
func uploadKey(localPath string) string {
	return "pdfs/" + filepath.Base(localPath)
}

// sortedCategoryIDs orders fetched category ids numerically so report and
// notification ordering is stable across runs.
func sortedCategoryIDs(current map[string][]document.Document) []string {
	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.Atoi(ids[i])
		b, berr := strconv.Atoi(ids[j])
		if aerr != nil || berr != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
	return ids
}
