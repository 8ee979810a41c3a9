package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nyulibraries/ultraviolet-cli/internal/console"
	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/ledger"
	"github.com/nyulibraries/ultraviolet-cli/internal/repository/objectstore"
	"github.com/nyulibraries/ultraviolet-cli/internal/schema"
)

// resourcesDirName is the optional per-item subdirectory of upload candidates.
const resourcesDirName = "resources"

// FixtureAPI is the slice of the REST client the fixture pipeline needs.
type FixtureAPI interface {
	Ping(ctx context.Context) error
	CreateDraft(ctx context.Context, metadata json.RawMessage) (domain.RecordDraft, error)
	DeleteDraft(ctx context.Context, pid string) error
	Publish(ctx context.Context, publishURL string) error
	RegisterDraftFile(ctx context.Context, pid, key string) error
}

// Uploader is the slice of the upload service the fixture pipeline needs.
type Uploader interface {
	Upload(ctx context.Context, task domain.UploadTask, store objectstore.BucketStore, existing map[string]domain.StoredObjectRef, policy CollisionPolicy) (string, domain.StoredObjectRef, error)
}

// StoreOpener lazily opens the bucket store backing resource uploads. It is
// called on the first item that carries resources, so metadata-only ingests
// need no storage location configured.
type StoreOpener func() (objectstore.BucketStore, error)

// FixtureService drives ingestion and purge of fixture records.
type FixtureService struct {
	api       FixtureAPI
	uploader  Uploader
	openStore StoreOpener
	store     objectstore.BucketStore
}

// NewFixtureService creates a new FixtureService. The opener may be nil when
// no fixture carries resources.
func NewFixtureService(api FixtureAPI, uploader Uploader, openStore StoreOpener) *FixtureService {
	return &FixtureService{
		api:       api,
		uploader:  uploader,
		openStore: openStore,
	}
}

// bucketStore opens the store on first use and caches it for the rest of
// the run.
func (f *FixtureService) bucketStore() (objectstore.BucketStore, error) {
	if f.store != nil {
		return f.store, nil
	}
	if f.openStore == nil {
		return nil, uverrors.Storage(nil, "no storage location configured")
	}
	store, err := f.openStore()
	if err != nil {
		return nil, uverrors.Storage(err, "opening storage location")
	}
	f.store = store
	return store, nil
}

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	RootDir string
	Ledger  *ledger.Ledger
	// Schema, when non-nil, is checked against each item's metadata before
	// submission.
	Schema  *gojsonschema.Schema
	Publish bool
}

// ItemResult is the outcome for one fixture item.
type ItemResult struct {
	Item     string
	RecordID string
	Uploaded int
	Err      error
}

// IngestSummary reports an ingestion run.
type IngestSummary struct {
	Found     int
	Created   int
	Published int
	Uploaded  int
	Results   []ItemResult
}

// Failed returns the results of items that did not fully succeed.
func (s IngestSummary) Failed() []ItemResult {
	var failed []ItemResult
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Ingest walks the fixtures directory and creates one draft per item,
// recording each created id in the ledger before moving on. A failed item
// does not stop the run; an unreachable API does.
func (f *FixtureService) Ingest(ctx context.Context, opts IngestOptions) (IngestSummary, error) {
	if err := f.api.Ping(ctx); err != nil {
		return IngestSummary{}, err
	}

	items, itemErrs, err := DiscoverItems(opts.RootDir)
	if err != nil {
		return IngestSummary{}, err
	}

	summary := IngestSummary{Found: len(items) + len(itemErrs)}
	for _, bad := range itemErrs {
		console.Errorf("%s: %v", bad.Item, bad.Err)
		summary.Results = append(summary.Results, bad)
	}
	console.Infof("\nFound %d records", summary.Found)

	for _, item := range items {
		result := f.ingestItem(ctx, item, opts)
		if result.Err != nil {
			if uverrors.IsKind(result.Err, uverrors.KindConnectivity) {
				// A connectivity fault after the probe means the API went
				// away mid-run; stop rather than fail every remaining item.
				return summary, result.Err
			}
			console.Errorf("%s: %v", item.Identifier, result.Err)
		} else {
			summary.Created++
			summary.Uploaded += result.Uploaded
			if opts.Publish {
				summary.Published++
			}
		}
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

func (f *FixtureService) ingestItem(ctx context.Context, item domain.FixtureItem, opts IngestOptions) ItemResult {
	result := ItemResult{Item: item.Identifier}

	console.Infof("Posting record from %s", item.MetadataPath)

	metadata, err := os.ReadFile(item.MetadataPath)
	if err != nil {
		result.Err = fmt.Errorf("reading metadata: %w", err)
		return result
	}
	if !json.Valid(metadata) {
		result.Err = uverrors.Validationf("malformed JSON in %s", item.MetadataPath)
		return result
	}
	if opts.Schema != nil {
		if err := schema.Validate(metadata, opts.Schema); err != nil {
			result.Err = err
			return result
		}
	}

	draft, err := f.api.CreateDraft(ctx, metadata)
	if err != nil {
		result.Err = err
		return result
	}
	result.RecordID = draft.ID

	// Persist the mapping before anything else so a crash mid-item still
	// leaves the created record tracked for purge.
	if err := opts.Ledger.Put(draft.ID, item.Identifier); err != nil {
		result.Err = err
		return result
	}

	if item.ResourcesPath != "" {
		uploaded, err := f.uploadResources(ctx, draft, item)
		result.Uploaded = uploaded
		if err != nil {
			result.Err = err
			return result
		}
	}

	if opts.Publish {
		if err := f.api.Publish(ctx, draft.Links.Publish); err != nil {
			result.Err = err
			return result
		}
	}

	console.Successf("Created record %s from %s", draft.ID, item.Identifier)
	return result
}

// uploadResources pushes every regular file of the item's resources
// directory into the draft's bucket under the draft id. A failed file is
// reported and the remaining files still go up.
func (f *FixtureService) uploadResources(ctx context.Context, draft domain.RecordDraft, item domain.FixtureItem) (int, error) {
	store, err := f.bucketStore()
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(item.ResourcesPath)
	if err != nil {
		return 0, uverrors.Storage(err, "reading resources for %s", item.Identifier)
	}

	var uploaded int
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		task, err := NewUploadTask(filepath.Join(item.ResourcesPath, entry.Name()))
		if err != nil {
			console.Errorf("%v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		task.KeyPrefix = draft.ID

		name, _, err := f.uploader.Upload(ctx, task, store, nil, CollisionPolicy{Mode: CollisionFail})
		if err != nil {
			console.Errorf("%v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := f.api.RegisterDraftFile(ctx, draft.ID, name); err != nil {
			console.Errorf("%v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		uploaded++
	}
	return uploaded, firstErr
}

// PurgeSummary reports a purge run.
type PurgeSummary struct {
	Deleted   int
	Remaining int
}

// Purge deletes every draft tracked by the ledger. Entries are removed only
// after a confirmed remote deletion; failed deletes stay in the ledger for
// the next run.
func (f *FixtureService) Purge(ctx context.Context, led *ledger.Ledger) (PurgeSummary, error) {
	if err := f.api.Ping(ctx); err != nil {
		return PurgeSummary{}, err
	}

	var summary PurgeSummary
	for recordID, itemID := range led.Entries() {
		if err := f.api.DeleteDraft(ctx, recordID); err != nil {
			console.Warnf("Could not delete draft %s aka %s: %v", itemID, recordID, err)
			summary.Remaining++
			continue
		}
		console.Infof("Deleting draft record %s aka %s", itemID, recordID)
		if err := led.Remove(recordID); err != nil {
			return summary, err
		}
		summary.Deleted++
	}
	return summary, nil
}

// DiscoverItems scans rootDir for fixture items: one immediate subdirectory
// per item, each holding exactly one JSON metadata file and an optional
// "resources" directory. Items violating the one-JSON rule come back as
// failed results instead of aborting the scan. Order is directory-scan order;
// items carry no ordering dependency.
func DiscoverItems(rootDir string) ([]domain.FixtureItem, []ItemResult, error) {
	dirEntries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading fixtures directory %s: %w", rootDir, err)
	}

	var items []domain.FixtureItem
	var bad []ItemResult
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}
		itemDir := filepath.Join(rootDir, entry.Name())

		metadata, err := findMetadataFile(itemDir)
		if err != nil {
			bad = append(bad, ItemResult{Item: entry.Name(), Err: err})
			continue
		}

		item := domain.FixtureItem{
			Identifier:   entry.Name(),
			MetadataPath: metadata,
		}
		resources := filepath.Join(itemDir, resourcesDirName)
		if info, err := os.Stat(resources); err == nil && info.IsDir() {
			item.ResourcesPath = resources
		}
		items = append(items, item)
	}
	return items, bad, nil
}

func findMetadataFile(itemDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(itemDir, "*.json"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	switch len(matches) {
	case 0:
		return "", uverrors.Validationf("no JSON metadata file in %s", itemDir)
	case 1:
		return matches[0], nil
	default:
		return "", uverrors.Validationf("%d JSON metadata files in %s, expected exactly one", len(matches), itemDir)
	}
}
