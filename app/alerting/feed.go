package alerting

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// FeedReader reads RSS and Atom alert distribution feeds.
type FeedReader struct{}

func NewFeedReader() *FeedReader {
	return &FeedReader{}
}

// ParseFeed reads a feed from r with a new FeedReader.
func ParseFeed(ctx context.Context, r io.Reader) (*Feed[Tree], error) {
	return NewFeedReader().Read(ctx, r)
}

// Read parses the feed in r into its normalized channel and items. A failing
// source stream yields a *TransportError and a malformed document a
// *ParseError; neither returns a partial feed.
func (fr *FeedReader) Read(ctx context.Context, r io.Reader) (*Feed[Tree], error) {
	source := &sourceReader{ctx: ctx, r: r}

	// gofeed parsers keep per-document state, so each read gets its own.
	parsed, err := gofeed.NewParser().Parse(source)
	if source.err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read feed stream: %w", source.err)}
	}
	if err != nil {
		return nil, &ParseError{Kind: KindFeed, Err: err}
	}
	if parsed.FeedType != "rss" && parsed.FeedType != "atom" {
		return nil, &ParseError{Kind: KindFeed, Err: fmt.Errorf("%w: %s", ErrUnsupportedFeed, parsed.FeedType)}
	}

	feed := &Feed[Tree]{
		Channel: Normalize(channelTree(parsed)),
		Items:   make([]Tree, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		normalized := Normalize(itemTree(item))
		if len(normalized) == 0 {
			continue
		}
		feed.Items = append(feed.Items, normalized)
	}

	return feed, nil
}

// sourceReader records the first read error of the underlying stream and
// stops reading once ctx is done.
type sourceReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return 0, err
	}
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

func channelTree(f *gofeed.Feed) Tree {
	t := Tree{}
	setString(t, "title", f.Title)
	setString(t, "description", f.Description)
	setString(t, "link", f.Link)
	setString(t, "feedLink", f.FeedLink)
	setStrings(t, "links", f.Links)
	setString(t, "updated", f.Updated)
	setTime(t, "updatedParsed", f.UpdatedParsed)
	setString(t, "published", f.Published)
	setTime(t, "publishedParsed", f.PublishedParsed)
	setString(t, "language", f.Language)
	setString(t, "copyright", f.Copyright)
	setString(t, "generator", f.Generator)
	setStrings(t, "categories", f.Categories)
	setPeople(t, f.Author, f.Authors)

	if f.Image != nil {
		t["image"] = Tree{"url": f.Image.URL, "title": f.Image.Title}
	}

	setExtensions(t, f.Extensions)
	for key, value := range f.Custom {
		setString(t, key, value)
	}

	return t
}

func itemTree(item *gofeed.Item) Tree {
	t := Tree{}
	setString(t, "title", item.Title)
	setString(t, "description", item.Description)
	setString(t, "content", item.Content)
	setString(t, "link", item.Link)
	setStrings(t, "links", item.Links)
	setString(t, "guid", item.GUID)
	setString(t, "updated", item.Updated)
	setTime(t, "updatedParsed", item.UpdatedParsed)
	setString(t, "published", item.Published)
	setTime(t, "publishedParsed", item.PublishedParsed)
	setStrings(t, "categories", item.Categories)
	setPeople(t, item.Author, item.Authors)

	if item.Image != nil {
		t["image"] = Tree{"url": item.Image.URL, "title": item.Image.Title}
	}

	var enclosures []any
	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		enclosures = append(enclosures, Tree{
			"url":    enclosure.URL,
			"length": enclosure.Length,
			"type":   enclosure.Type,
		})
	}
	if len(enclosures) > 0 {
		t["enclosures"] = enclosures
	}

	setExtensions(t, item.Extensions)
	for key, value := range item.Custom {
		setString(t, key, value)
	}

	return t
}

func setString(t Tree, key, value string) {
	if value != "" {
		t[key] = value
	}
}

func setStrings(t Tree, key string, values []string) {
	if len(values) > 0 {
		t[key] = values
	}
}

func setTime(t Tree, key string, value *time.Time) {
	if value != nil && !value.IsZero() {
		t[key] = *value
	}
}

func setPeople(t Tree, author *gofeed.Person, authors []*gofeed.Person) {
	if author != nil {
		t["author"] = personTree(author)
	}
	var people []any
	for _, person := range authors {
		if person != nil {
			people = append(people, personTree(person))
		}
	}
	if len(people) > 0 {
		t["authors"] = people
	}
}

func personTree(p *gofeed.Person) Tree {
	person := Tree{}
	setString(person, "name", p.Name)
	setString(person, "email", p.Email)
	return person
}

// setExtensions stores namespaced elements under "prefix:name" keys.
func setExtensions(t Tree, extensions ext.Extensions) {
	for prefix, elements := range extensions {
		for name, values := range elements {
			key := prefix + ":" + name
			if len(values) == 1 {
				t[key] = extensionValue(values[0])
				continue
			}
			list := make([]any, 0, len(values))
			for _, value := range values {
				list = append(list, extensionValue(value))
			}
			t[key] = list
		}
	}
}

func extensionValue(e ext.Extension) any {
	if len(e.Attrs) == 0 && len(e.Children) == 0 {
		return e.Value
	}

	node := Tree{}
	if len(e.Attrs) > 0 {
		attrs := make(Tree, len(e.Attrs))
		for key, value := range e.Attrs {
			attrs[key] = value
		}
		node[AttrKey] = attrs
	}
	if e.Value != "" {
		node[TextKey] = e.Value
	}
	for name, children := range e.Children {
		if len(children) == 1 {
			node[name] = extensionValue(children[0])
			continue
		}
		list := make([]any, 0, len(children))
		for _, child := range children {
			list = append(list, extensionValue(child))
		}
		node[name] = list
	}
	return node
}
