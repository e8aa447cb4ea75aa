package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/objectstore"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

const DefaultArchiveConcurrency = 8

type ArchiveOptions struct {
	// Concurrency bounds parallel downloads.
	Concurrency int
	// MaxDepth bounds breadth-first expansion when FlatListing is off.
	MaxDepth int
	// FlatListing lists the whole subtree with one descendants call.
	FlatListing bool
}

// ArchiveService streams a folder as a zip archive.
type ArchiveService struct {
	dir   Directory
	store objectstore.Store
	opts  ArchiveOptions
	log   logging.Logger
}

func NewArchiveService(dir Directory, store objectstore.Store, opts ArchiveOptions, log logging.Logger) *ArchiveService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultArchiveConcurrency
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ArchiveService{dir: dir, store: store, opts: opts, log: log.With("service", "archive")}
}

// archiveJob is the state of one archive download.
type archiveJob struct {
	rootID       string
	childrenByID map[string]*models.FsObject
	pathByID     map[string]string

	mu      sync.Mutex
	pending map[string]struct{}
}

func newArchiveJob(rootID string, nodes []models.FsObject, paths map[string]string) *archiveJob {
	job := &archiveJob{
		rootID:       rootID,
		childrenByID: make(map[string]*models.FsObject, len(nodes)),
		pathByID:     paths,
		pending:      make(map[string]struct{}),
	}
	for i := range nodes {
		n := &nodes[i]
		if n.ID == rootID {
			continue
		}
		job.childrenByID[n.ID] = n
		if n.IsFile() {
			job.pending[n.ID] = struct{}{}
		}
	}
	return job
}

// entry is the archive name of a node: its path without the leading '/'.
func (j *archiveJob) entry(id string) string {
	return strings.TrimPrefix(j.pathByID[id], "/")
}

// ids returns the ids of the given kind ordered by path.
func (j *archiveJob) ids(kind string) []string {
	var out []string
	for id, n := range j.childrenByID {
		if n.Type == kind {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(a, b int) bool { return j.pathByID[out[a]] < j.pathByID[out[b]] })
	return out
}

// PrepareFolderArchive checks the folder exists and returns its record, so a
// caller can name the attachment before any byte is written.
func (s *ArchiveService) PrepareFolderArchive(ctx context.Context, owner, folderID string) (*models.FsObject, error) {
	folder, err := s.dir.GetObject(ctx, owner, folderID)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folderID, err)
	}
	if !folder.IsFolder() {
		return nil, common.Validationf("%s is a %s, not a folder", folder.ID, folder.Type)
	}
	return folder, nil
}

// DownloadFolderArchive writes the folder subtree to w as a zip archive.
// Files are fetched with bounded concurrency and added in completion order,
// one at a time. The first failure cancels the remaining downloads and the
// archive is left unfinished (no central directory), so a failed archive is
// never a valid one.
func (s *ArchiveService) DownloadFolderArchive(ctx context.Context, owner, folderID string, w io.Writer) error {
	nodes, err := s.collect(ctx, owner, folderID)
	if err != nil {
		return err
	}

	paths, err := ResolvePaths(folderID, nodes)
	if err != nil {
		return err
	}
	job := newArchiveJob(folderID, nodes, paths)

	zw := zip.NewWriter(w)

	for _, id := range job.ids(models.TypeFolder) {
		n := job.childrenByID[id]
		if _, err := zw.CreateHeader(&zip.FileHeader{Name: job.entry(id) + "/", Modified: n.UpdatedAt}); err != nil {
			return fmt.Errorf("write folder entry %s: %w", job.entry(id), err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	var zmu sync.Mutex
	for _, id := range job.ids(models.TypeFile) {
		n := job.childrenByID[id]
		g.Go(func() error {
			return s.addFile(gctx, owner, job, n, zw, &zmu)
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Error(ctx, "folder archive failed", "folder", folderID, "pending", len(job.pending), "error", err)
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	s.log.Info(ctx, "folder archive sent", "folder", folderID, "entries", len(job.childrenByID))
	return nil
}

func (s *ArchiveService) addFile(ctx context.Context, owner string, job *archiveJob, n *models.FsObject, zw *zip.Writer, zmu *sync.Mutex) error {
	rc, err := s.store.GetObject(ctx, bucketOf(n, owner), n.ID)
	if err != nil {
		return fmt.Errorf("download %s: %w", job.entry(n.ID), err)
	}
	defer rc.Close()

	zmu.Lock()
	defer zmu.Unlock()

	// another download may have failed while this one waited
	if err := ctx.Err(); err != nil {
		return err
	}

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     job.entry(n.ID),
		Method:   zip.Deflate,
		Modified: n.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("write entry %s: %w", job.entry(n.ID), err)
	}
	if _, err := io.Copy(fw, rc); err != nil {
		return fmt.Errorf("stream %s: %w", job.entry(n.ID), err)
	}

	job.mu.Lock()
	delete(job.pending, n.ID)
	job.mu.Unlock()
	return nil
}

// collect fetches every node below folderID, either in one descendants call
// or breadth first, one children call per folder.
func (s *ArchiveService) collect(ctx context.Context, owner, folderID string) ([]models.FsObject, error) {
	if s.opts.FlatListing {
		nodes, err := s.dir.ListDescendants(ctx, owner, folderID)
		if err != nil {
			return nil, fmt.Errorf("list descendants of %s: %w", folderID, err)
		}
		return nodes, nil
	}

	var nodes []models.FsObject
	visited := map[string]bool{folderID: true}
	frontier := []string{folderID}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= s.opts.MaxDepth {
			return nil, fmt.Errorf("folder %s is deeper than %d levels: %w", folderID, s.opts.MaxDepth, common.ErrHierarchyTooDeep)
		}

		var next []string
		for _, id := range frontier {
			children, err := s.dir.ListChildren(ctx, owner, id)
			if err != nil {
				return nil, fmt.Errorf("list children of %s: %w", id, err)
			}
			for _, c := range children {
				nodes = append(nodes, c)
				if c.IsFolder() && !visited[c.ID] {
					visited[c.ID] = true
					next = append(next, c.ID)
				}
			}
		}
		frontier = next
	}

	return nodes, nil
}
