// package composing resolves the include elements of html templates,
// recursively and concurrently, into one composed document
package composing

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/composable"
	"github.com/kava-labs/composer-proxy-service/logging"
)

var (
	ErrRecursionLimit = errors.New("include recursion limit reached")
	ErrIncludeCycle   = errors.New("include cycle detected")
)

// Result is a composed template
type Result struct {
	Body []byte
	// Extensions is the composition given to ComposeTemplate merged with
	// the fragments of every fetched include in document order
	Extensions composable.ResponseComposition
	// Includes is the number of includes resolved, fallbacks included
	Includes int
}

// Composer composes templates
type Composer struct {
	parser   Parser
	maxDepth int
	logger   *logging.ServiceLogger
}

func NewComposer(parser Parser, maxDepth int, logger *logging.ServiceLogger) *Composer {
	return &Composer{
		parser:   parser,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// resolved is the outcome of one include and everything below it
type resolved struct {
	composition Composition
	assets      []string
	fragments   []composable.Fragments
	includes    int
}

// ComposeTemplate replaces every include of template with the content
// fetched by fetcher. the template itself is not fetched, step is the
// step it was fetched at. a failing include degrades to its fallback,
// composition itself never fails
func (c *Composer) ComposeTemplate(ctx context.Context, template *backend.Response, step CompositionStep, fetcher Fetcher, extensions composable.ResponseComposition) Result {
	doc := c.parser.Parse(template.Body)

	children := c.resolveAll(ctx, doc.Includes, step, fetcher, extensions)

	compositions := make([]Composition, 0, len(children)+1)
	var assets []string
	seen := map[string]bool{}
	includes := 0
	for _, child := range children {
		compositions = append(compositions, child.composition)
		includes += child.includes
		for _, fragments := range child.fragments {
			extensions = extensions.ComposedWith(fragments)
		}
		for _, asset := range child.assets {
			if !seen[asset] {
				seen[asset] = true
				assets = append(assets, asset)
			}
		}
	}

	if len(assets) > 0 {
		if doc.HeadEnd >= 0 {
			compositions = append(compositions, Composition{
				StartOffset: doc.HeadEnd,
				EndOffset:   doc.HeadEnd,
				Body:        []byte(strings.Join(assets, "\n")),
			})
		} else {
			c.logger.Debug().
				Str("step", step.String()).
				Int("assets", len(assets)).
				Msg("template has no head, dropping fragment assets")
		}
	}

	return Result{
		Body:       Splice(template.Body, compositions),
		Extensions: extensions,
		Includes:   includes,
	}
}

// resolveAll resolves includes concurrently, results keep document order
func (c *Composer) resolveAll(ctx context.Context, includes []IncludedService, step CompositionStep, fetcher Fetcher, extensions composable.ResponseComposition) []resolved {
	results := make([]resolved, len(includes))
	if len(includes) == 0 {
		return results
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i, include := range includes {
		i, include := i, include
		g.Go(func() error {
			results[i] = c.resolve(groupCtx, include, step, fetcher, extensions)
			return nil
		})
	}
	// resolve never fails
	_ = g.Wait()

	return results
}

// resolve fetches one include and composes its content with the offsets
// of the include relative to the document it appears in
func (c *Composer) resolve(ctx context.Context, include IncludedService, parent CompositionStep, fetcher Fetcher, extensions composable.ResponseComposition) resolved {
	fc := include.FetchContext(c.logger)
	step := parent.ChildWith(fc.Path)

	if err := c.checkRecursion(step); err != nil {
		c.logger.Warn().
			Err(err).
			Str("step", step.String()).
			Msg("not following include, using fallback")
		return resolved{
			composition: Composition{
				StartOffset: include.StartOffset,
				EndOffset:   include.EndOffset,
				Body:        []byte(fc.Fallback),
			},
			includes: 1,
		}
	}

	res := fetcher.Fetch(ctx, fc, step, extensions)
	if res == nil {
		res = fc.FallbackResponse()
	}

	fragments := extensions.FragmentFor(res)
	childExtensions := extensions.ComposedWith(fragments)

	content, assets := c.fragmentContent(res.Body)
	doc := c.parser.Parse(content)
	children := c.resolveAll(ctx, doc.Includes, step, fetcher, childExtensions)

	out := resolved{
		fragments: []composable.Fragments{fragments},
		assets:    assets,
		includes:  1,
	}

	compositions := make([]Composition, len(children))
	for i, child := range children {
		compositions[i] = child.composition
		out.fragments = append(out.fragments, child.fragments...)
		out.assets = append(out.assets, child.assets...)
		out.includes += child.includes
	}

	out.composition = Composition{
		StartOffset: include.StartOffset,
		EndOffset:   include.EndOffset,
		Body:        Splice(content, compositions),
	}

	return out
}

// fragmentContent returns the part of a fetched fragment that replaces
// the include: the inner markup of its content element when it has one,
// the whole body otherwise. assets outside the content element are
// returned to be moved into the root template
func (c *Composer) fragmentContent(body []byte) ([]byte, []string) {
	doc := c.parser.Parse(body)
	if !doc.HasContent() {
		return body, nil
	}

	var assets []string
	for _, asset := range doc.Assets {
		if asset.EndOffset <= doc.ContentStart || asset.StartOffset >= doc.ContentEnd {
			assets = append(assets, asset.Markup)
		}
	}

	return body[doc.ContentStart:doc.ContentEnd], assets
}

func (c *Composer) checkRecursion(step CompositionStep) error {
	if step.IsCycle() {
		return ErrIncludeCycle
	}
	if c.maxDepth > 0 && step.Depth() > c.maxDepth {
		return ErrRecursionLimit
	}
	return nil
}
