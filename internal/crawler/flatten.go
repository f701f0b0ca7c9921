package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// Lister returns every item of a paginated collection. *notion.Fetcher
// implements it.
type Lister interface {
	FetchAll(ctx context.Context, coll notion.Collection) notion.FetchResult
}

// FlattenResult is the outcome of one flatten pass.
type FlattenResult struct {
	// Content is the ordered content list.
	Content []model.ContentItem

	// Assets holds one AssetRef per distinct source URL, in discovery order.
	Assets []model.AssetRef

	// Stats counts traversal events and anomalies.
	Stats model.FlattenStats

	// Complete is false when any child list was truncated, a depth limit was
	// hit, or the pass was cancelled.
	Complete bool

	// Anomalies lists structural anomalies such as cycles.
	Anomalies []error

	// Err is the context error when the pass was cancelled.
	Err error
}

// Flattener walks a block tree and produces a flat content list.
type Flattener struct {
	lister     Lister
	classifier *Classifier
	resolver   *FilenameResolver

	// maxDepth limits how deep blocks are expanded. 0 means unlimited.
	// The root's direct children are at depth 1.
	maxDepth int

	logger *slog.Logger
}

// FlattenerOption configures a Flattener.
type FlattenerOption func(*Flattener)

// WithMaxDepth limits expansion depth. Blocks at the limit are emitted but
// their children are not fetched, and the result is marked incomplete.
func WithMaxDepth(depth int) FlattenerOption {
	return func(f *Flattener) {
		if depth >= 0 {
			f.maxDepth = depth
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) FlattenerOption {
	return func(f *Flattener) {
		f.logger = logger
	}
}

// NewFlattener creates a Flattener.
func NewFlattener(lister Lister, classifier *Classifier, resolver *FilenameResolver, opts ...FlattenerOption) *Flattener {
	f := &Flattener{
		lister:     lister,
		classifier: classifier,
		resolver:   resolver,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// frame is one level of the traversal stack: the fetched children of a block
// and the position of the next child to visit.
type frame struct {
	parentID string
	nodes    []notion.Node
	next     int
	depth    int
}

// pass holds the state of one flatten call.
type pass struct {
	visited map[string]struct{}

	// byURL maps a source URL to its filename; byName maps back to the URL
	// that claimed the filename first.
	byURL  map[string]string
	byName map[string]string

	result FlattenResult
}

func newPass(rootID string) *pass {
	p := &pass{
		visited: map[string]struct{}{rootID: {}},
		byURL:   make(map[string]string),
		byName:  make(map[string]string),
	}
	p.result.Content = []model.ContentItem{}
	p.result.Assets = []model.AssetRef{}
	p.result.Complete = true
	return p
}

// Flatten walks the children of rootID depth-first in pre-order.
//
// A block's own item precedes the items of its descendants. Blocks that are
// neither text nor image emit nothing, but their children are still walked.
func (f *Flattener) Flatten(ctx context.Context, rootID string) FlattenResult {
	p := newPass(rootID)

	children, ok := f.expand(ctx, p, rootID)
	if !ok && ctx.Err() != nil {
		p.result.Err = ctx.Err()
		return p.result
	}
	stack := []*frame{{parentID: rootID, nodes: children, depth: 1}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.nodes) {
			stack = stack[:len(stack)-1]
			continue
		}

		if err := ctx.Err(); err != nil {
			p.result.Complete = false
			p.result.Err = err
			f.logger.Warn("flatten cancelled",
				"root", rootID,
				"nodes_visited", p.result.Stats.NodesVisited,
			)
			return p.result
		}

		node := top.nodes[top.next]
		top.next++
		p.result.Stats.NodesVisited++

		if _, seen := p.visited[node.ID]; seen {
			anomaly := &AnomalyError{NodeID: node.ID, ParentID: top.parentID, Err: ErrCycle}
			p.result.Stats.CyclesSkipped++
			p.result.Anomalies = append(p.result.Anomalies, anomaly)
			f.logger.Warn("skipping revisited block", "root", rootID, "error", anomaly)
			continue
		}
		p.visited[node.ID] = struct{}{}

		f.emit(p, node)

		if !node.HasChildren {
			continue
		}
		if f.maxDepth > 0 && top.depth >= f.maxDepth {
			p.result.Stats.DepthLimited++
			p.result.Complete = false
			f.logger.Debug("depth limit reached", "block", node.ID, "depth", top.depth)
			continue
		}

		grandchildren, _ := f.expand(ctx, p, node.ID)
		if len(grandchildren) > 0 {
			stack = append(stack, &frame{parentID: node.ID, nodes: grandchildren, depth: top.depth + 1})
		}
	}

	f.logger.Debug("flatten finished",
		"root", rootID,
		"items", len(p.result.Content),
		"assets", len(p.result.Assets),
		"complete", p.result.Complete,
	)
	return p.result
}

// expand fetches the child list of id. A truncated list still returns the
// items fetched before the failure. ok is false when the list is incomplete.
func (f *Flattener) expand(ctx context.Context, p *pass, id string) ([]notion.Node, bool) {
	fetched := f.lister.FetchAll(ctx, notion.BlockChildren(id))
	p.result.Stats.Expansions++

	if !fetched.Complete {
		p.result.Stats.FailedExpansions++
		p.result.Complete = false
		f.logger.Warn("child list incomplete",
			"block", id,
			"items", len(fetched.Items),
			"error", fetched.Err,
		)
		return fetched.Items, false
	}
	return fetched.Items, true
}

// emit appends the content item of node, if any.
func (f *Flattener) emit(p *pass, node notion.Node) {
	c := f.classifier.Classify(node)
	switch c.Kind {
	case TextNode:
		p.result.Content = append(p.result.Content, model.TextItem(c.TextKind, c.Text))
	case ImageNode:
		filename := f.assetFor(p, c.URL, node.ID)
		p.result.Content = append(p.result.Content, model.ImageItem(filename))
	case OtherNode:
	}
}

// assetFor returns the filename for url, minting an AssetRef on first sight.
func (f *Flattener) assetFor(p *pass, url, nodeID string) string {
	if filename, ok := p.byURL[url]; ok {
		return filename
	}

	filename := f.resolver.Resolve(url, nodeID)
	if owner, taken := p.byName[filename]; taken {
		p.result.Stats.FilenameCollisions++
		f.logger.Warn("filename collision between different images",
			"filename", filename,
			"block", nodeID,
			"first_url", owner,
			"url", url,
		)
	} else {
		p.byName[filename] = url
	}

	p.byURL[url] = filename
	p.result.Assets = append(p.result.Assets, model.AssetRef{SourceURL: url, Filename: filename})
	return filename
}
