package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/engine"
	"github.com/hyperjump/kensaku/internal/search"
)

// searchPage renders the built-in search UI. Snippets arrive pre-escaped with
// <mark> highlighting, hence the |html pipeline is bypassed for them only.
var searchPage = template.Must(template.New("search").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Kensaku</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
form { display: flex; gap: .5rem; margin-bottom: 1.5rem; }
input[type=text] { flex: 1; padding: .5rem; font-size: 1rem; }
button { padding: .5rem 1rem; }
.hit { margin-bottom: 1.25rem; }
.hit .path { font-weight: bold; }
.hit .score { color: #666; font-size: .85rem; }
.hit .snippet { margin: .25rem 0 0; }
mark { background: #ffe08a; }
.meta { color: #666; font-size: .85rem; margin-bottom: 1rem; }
</style>
</head>
<body>
<h1>Kensaku</h1>
<form method="get" action="/">
<input type="text" name="q" value="{{.Query}}" placeholder="search the corpus" autofocus>
<button type="submit">Search</button>
</form>
{{if .Searched}}
<p class="meta">{{.Total}} result(s) in {{printf "%.1f" .QueryTimeMS}} ms</p>
{{range .Results}}
<div class="hit">
<div class="path"><a href="/raw/{{.DocID}}">{{.Path}}</a> <span class="score">{{printf "%.3f" .Score}}</span></div>
<p class="snippet">{{.SnippetHTML}}</p>
</div>
{{else}}
<p>No matches.</p>
{{end}}
{{end}}
</body>
</html>
`))

type pageHit struct {
	DocID       uint32
	Path        string
	Score       float64
	SnippetHTML template.HTML
}

type pageData struct {
	Query       string
	Searched    bool
	Total       int
	QueryTimeMS float64
	Results     []pageHit
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	data := pageData{Query: query}
	if query != "" {
		resp, err := s.engine.Search(r.Context(), query, 0)
		if err != nil {
			s.logger.Error("page search failed", zap.Error(err))
			http.Error(w, "search failed", http.StatusInternalServerError)
			return
		}
		data.Searched = true
		data.Total = resp.Total
		data.QueryTimeMS = resp.QueryTimeMS
		data.Results = toPageHits(resp)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := searchPage.Execute(w, data); err != nil {
		s.logger.Error("page render failed", zap.Error(err))
	}
}

func toPageHits(resp *engine.SearchResponse) []pageHit {
	hits := make([]pageHit, 0, len(resp.Results))
	for _, h := range resp.Results {
		hits = append(hits, toPageHit(h))
	}
	return hits
}

func toPageHit(h search.Hit) pageHit {
	return pageHit{
		DocID:       h.DocID,
		Path:        h.Path,
		Score:       h.Score,
		// Snippet text is escaped at extraction time; only the <mark> tags
		// are live markup.
		SnippetHTML: template.HTML(h.Snippet),
	}
}
