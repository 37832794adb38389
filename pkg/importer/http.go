package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/apperr"
)

// httpContinuation is the JSON shape persisted between HTTP walker
// runs (spec.md §4.10: "HTTP: {etag, last_modified}").
type httpContinuation struct {
	ETag         string `json:"etag"`
	LastModified string `json:"last_modified"`
}

// HTTPWalker fetches a single document from a fixed URL, conditionally
// via ETag/If-Modified-Since, and re-ingests it only when it changed.
// Unlike the Git and Quay walkers it names one document rather than a
// changing file set, matching an "index" source that is itself the
// payload (e.g. a single CSAF or advisory-feed document republished in
// place).
type HTTPWalker struct {
	Name    string
	Config  HTTPConfig
	Client  *http.Client
	Timeout time.Duration
	Ingest  IngestFunc
	Labels  LabelWriter
}

func (w *HTTPWalker) Run(ctx context.Context, continuation []byte, report *ReportBuilder) ([]byte, error) {
	var prev httpContinuation
	if len(continuation) > 0 {
		if err := json.Unmarshal(continuation, &prev); err != nil {
			return nil, apperr.Wrap(apperr.KindParse, err, "parse http continuation for %q", w.Name)
		}
	}

	rctx, cancel := context.WithTimeout(ctx, w.requestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, w.Config.URL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "build request for %q", w.Config.URL)
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	resp, err := w.client().Do(req)
	if err != nil {
		report.AddError(PhaseRetrieval, w.Config.URL, err.Error())
		return continuation, apperr.Wrap(apperr.KindGeneric, err, "fetch %q", w.Config.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return continuation, nil
	}
	if resp.StatusCode != http.StatusOK {
		report.AddError(PhaseRetrieval, w.Config.URL, "unexpected status "+resp.Status)
		return continuation, apperr.New(apperr.KindGeneric, "fetch %q: %s", w.Config.URL, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		report.AddError(PhaseRetrieval, w.Config.URL, err.Error())
		return continuation, apperr.Wrap(apperr.KindParse, err, "read body from %q", w.Config.URL)
	}
	report.Tick()

	result, err := w.Ingest(ctx, bytes.NewReader(buf.Bytes()), adapter.FormatUnknown)
	if err != nil {
		report.AddError(PhaseUpload, w.Config.URL, err.Error())
		return continuation, err
	}
	if result.Skipped {
		report.AddMessage(PhaseUpload, w.Config.URL, "digest already on record, skipped")
	} else {
		report.AddMessage(PhaseUpload, w.Config.URL, "ingested as "+string(result.Format))
		if w.Labels != nil {
			labels := map[string]string{"source": "http", "importer": w.Name}
			if err := w.Labels(ctx, result, labels); err != nil {
				report.AddError(PhaseUpload, w.Config.URL, "set labels: "+err.Error())
			}
		}
	}

	next := httpContinuation{
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
	}
	return json.Marshal(next)
}

func (w *HTTPWalker) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return http.DefaultClient
}

func (w *HTTPWalker) requestTimeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 60 * time.Second
}
