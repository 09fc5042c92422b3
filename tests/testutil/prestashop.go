package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
)

// FakeEdit is a PUT received by FakePrestaShop
type FakeEdit struct {
	Resource string
	ID       int64
	Record   prestashop.Record
}

type fakeDoc struct {
	node   string
	fields string
}

type fakeImage struct {
	contentType string
	data        []byte
}

// FakePrestaShop is an in-memory PrestaShop web service. Records are
// registered as XML fragments and served under /api/<resource>[/<id>].
// Searches support exact "filter[field]=[value]" filters and "limit"; date
// filters are ignored.
type FakePrestaShop struct {
	Server *httptest.Server

	mu       sync.Mutex
	docs     map[string]map[int64]fakeDoc
	images   map[string]fakeImage
	edits    []FakeEdit
	requests []string
}

// NewFakePrestaShop starts a fake web service closed with the test
func NewFakePrestaShop(t *testing.T) *FakePrestaShop {
	t.Helper()
	f := &FakePrestaShop{
		docs:   make(map[string]map[int64]fakeDoc),
		images: make(map[string]fakeImage),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the shop location
func (f *FakePrestaShop) URL() string {
	return f.Server.URL
}

// Add registers a record. fields is the XML content of the record node,
// without the id element.
func (f *FakePrestaShop) Add(resource, node string, id int64, fields string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs[resource] == nil {
		f.docs[resource] = make(map[int64]fakeDoc)
	}
	f.docs[resource][id] = fakeDoc{node: node, fields: fields}
}

// Remove deletes a record
func (f *FakePrestaShop) Remove(resource string, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs[resource], id)
}

// AddImage registers images/<resource>/<resourceID>/<imageID>
func (f *FakePrestaShop) AddImage(resource string, resourceID, imageID int64, contentType string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[fmt.Sprintf("%s/%d/%d", resource, resourceID, imageID)] = fakeImage{contentType: contentType, data: data}
}

// Edits returns the PUT requests received so far
func (f *FakePrestaShop) Edits() []FakeEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeEdit(nil), f.edits...)
}

// Requests returns "METHOD path?query" of every request received so far
func (f *FakePrestaShop) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *FakePrestaShop) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())

	if user, _, ok := r.BasicAuth(); !ok || user == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	if path == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if rest, ok := strings.CutPrefix(path, "images/"); ok {
		img, found := f.images[rest]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", img.contentType)
		_, _ = w.Write(img.data)
		return
	}

	resource, idPart, hasID := strings.Cut(path, "/")
	if !hasID {
		f.search(w, r, resource)
		return
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	doc, found := f.docs[resource][id]
	if !found {
		writeFakeXML(w, http.StatusNotFound, `<prestashop><errors><error><code>90</code>`+
			`<message>Resource not found</message></error></errors></prestashop>`)
		return
	}

	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeFakeXML(w, http.StatusOK, doc.xml(id))
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		_, record, err := prestashop.Decode(body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.edits = append(f.edits, FakeEdit{Resource: resource, ID: id, Record: record})
		writeFakeXML(w, http.StatusOK, string(body))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakePrestaShop) search(w http.ResponseWriter, r *http.Request, resource string) {
	query := r.URL.Query()
	ids := make([]int64, 0, len(f.docs[resource]))
	node := strings.TrimSuffix(resource, "s")
	for id, doc := range f.docs[resource] {
		node = doc.node
		if f.matches(doc, id, query) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	if limit := query.Get("limit"); limit != "" {
		offset, size := 0, len(ids)
		if o, s, ok := strings.Cut(limit, ","); ok {
			offset, _ = strconv.Atoi(o)
			size, _ = strconv.Atoi(s)
		} else {
			size, _ = strconv.Atoi(limit)
		}
		if offset > len(ids) {
			offset = len(ids)
		}
		end := min(offset+size, len(ids))
		ids = ids[offset:end]
	}

	var b strings.Builder
	b.WriteString(`<prestashop xmlns:xlink="http://www.w3.org/1999/xlink"><` + resource + `>`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<%s id="%d" xlink:href="%s/api/%s/%d"/>`, node, id, f.Server.URL, resource, id)
	}
	b.WriteString(`</` + resource + `></prestashop>`)
	writeFakeXML(w, http.StatusOK, b.String())
}

func (f *FakePrestaShop) matches(doc fakeDoc, id int64, query map[string][]string) bool {
	var record prestashop.Record
	for key, values := range query {
		field, ok := strings.CutPrefix(key, "filter[")
		if !ok || len(values) == 0 {
			continue
		}
		field = strings.TrimSuffix(field, "]")
		value := values[0]
		if strings.HasPrefix(value, ">") || strings.HasPrefix(value, "<") {
			continue
		}
		if record == nil {
			_, decoded, err := prestashop.Decode([]byte(doc.xml(id)))
			if err != nil {
				return false
			}
			record = decoded
		}
		if record.String(field) != strings.Trim(value, "[]") {
			return false
		}
	}
	return true
}

func (d fakeDoc) xml(id int64) string {
	return fmt.Sprintf(`<prestashop xmlns:xlink="http://www.w3.org/1999/xlink"><%s><id>%d</id>%s</%s></prestashop>`,
		d.node, id, d.fields, d.node)
}

func writeFakeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/xml;charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
