package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/apperr"
)

// quayContinuation is the JSON shape persisted between Quay walker
// runs (spec.md §4.10: "Quay: {tag_cursor}"); the cursor is the Unix
// timestamp of the run that produced it, since Quay's repository
// listing is filterable by last_modified but not by an opaque token
// (original_source/modules/importer/src/runner/quay/walker.rs).
type quayContinuation struct {
	TagCursor int64 `json:"tag_cursor"`
}

// QuayWalker lists public repositories in a Quay namespace modified
// since the last run, finds tags suffixed ".sbom", and ingests each
// one's blob.
type QuayWalker struct {
	Name       string
	Config     QuayConfig
	APIBaseURL string
	SizeLimit  int64 // bytes; 0 means unlimited
	Client     *http.Client
	Timeout    time.Duration
	Ingest     IngestFunc
	Labels     LabelWriter
}

type quayRepositoryBatch struct {
	Repositories []quayRepositorySummary `json:"repositories"`
	NextPage     string                  `json:"next_page"`
}

type quayRepositorySummary struct {
	Namespace    string `json:"namespace"`
	Name         string `json:"name"`
	IsPublic     bool   `json:"is_public"`
	LastModified *int64 `json:"last_modified"`
}

type quayRepository struct {
	Namespace string             `json:"namespace"`
	Name      string             `json:"name"`
	Tags      map[string]quayTag `json:"tags"`
}

type quayTag struct {
	Name string `json:"name"`
	Size *int64 `json:"size"`
}

type sbomRef struct {
	namespace string
	name      string
	tag       string
	size      int64
}

func (r sbomRef) String() string {
	return fmt.Sprintf("%s/%s:%s", r.namespace, r.name, r.tag)
}

func (w *QuayWalker) Run(ctx context.Context, continuation []byte, report *ReportBuilder) ([]byte, error) {
	var prev quayContinuation
	if len(continuation) > 0 {
		if err := json.Unmarshal(continuation, &prev); err != nil {
			return nil, apperr.Wrap(apperr.KindParse, err, "parse quay continuation for %q", w.Name)
		}
	}

	refs, err := w.sboms(ctx, prev.TagCursor)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneric, err, "list quay repositories for %q", w.Config.Namespace)
	}

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			next, _ := json.Marshal(quayContinuation{TagCursor: prev.TagCursor})
			return next, ctx.Err()
		default:
		}
		w.processRef(ctx, ref, report)
	}

	next := quayContinuation{TagCursor: time.Now().Unix()}
	return json.Marshal(next)
}

func (w *QuayWalker) sboms(ctx context.Context, since int64) ([]sbomRef, error) {
	repos, err := w.repositories(ctx)
	if err != nil {
		return nil, err
	}

	var refs []sbomRef
	for _, summary := range repos {
		if !summary.IsPublic {
			continue
		}
		if summary.LastModified == nil || *summary.LastModified <= since {
			continue
		}
		repo, err := w.repository(ctx, summary.Namespace, summary.Name)
		if err != nil {
			continue
		}
		for _, tag := range repo.Tags {
			if !strings.HasSuffix(tag.Name, ".sbom") {
				continue
			}
			size := int64(0)
			if tag.Size != nil {
				size = *tag.Size
			}
			if w.SizeLimit > 0 && size > w.SizeLimit {
				continue
			}
			refs = append(refs, sbomRef{namespace: repo.Namespace, name: repo.Name, tag: tag.Name, size: size})
		}
	}
	return refs, nil
}

func (w *QuayWalker) repositories(ctx context.Context) ([]quayRepositorySummary, error) {
	var all []quayRepositorySummary
	page := ""
	for {
		url := w.apiBaseURL() + "/api/v1/repository?namespace=" + w.Config.Namespace + "&public=true"
		if page != "" {
			url += "&next_page=" + page
		}
		var batch quayRepositoryBatch
		if err := w.getJSON(ctx, url, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch.Repositories...)
		if batch.NextPage == "" {
			break
		}
		page = batch.NextPage
	}
	return all, nil
}

func (w *QuayWalker) repository(ctx context.Context, namespace, name string) (quayRepository, error) {
	var repo quayRepository
	url := w.apiBaseURL() + "/api/v1/repository/" + namespace + "/" + name
	err := w.getJSON(ctx, url, &repo)
	return repo, err
}

func (w *QuayWalker) getJSON(ctx context.Context, url string, out any) error {
	rctx, cancel := context.WithTimeout(ctx, w.requestTimeout())
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := w.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindGeneric, "quay request %q: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (w *QuayWalker) processRef(ctx context.Context, ref sbomRef, report *ReportBuilder) {
	url := w.apiBaseURL() + "/api/v1/repository/" + ref.namespace + "/" + ref.name + "/tag/" + ref.tag + "/blob"
	rctx, cancel := context.WithTimeout(ctx, w.requestTimeout())
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodGet, url, nil)
	if err != nil {
		report.AddError(PhaseRetrieval, ref.String(), err.Error())
		return
	}
	resp, err := w.client().Do(req)
	if err != nil {
		report.AddError(PhaseRetrieval, ref.String(), err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		report.AddError(PhaseRetrieval, ref.String(), "fetch blob: "+resp.Status)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		report.AddError(PhaseRetrieval, ref.String(), err.Error())
		return
	}
	report.Tick()

	result, err := w.Ingest(ctx, bytes.NewReader(buf.Bytes()), adapter.FormatUnknown)
	if err != nil {
		report.AddError(PhaseUpload, ref.String(), err.Error())
		return
	}
	if result.Skipped {
		report.AddMessage(PhaseUpload, ref.String(), "digest already on record, skipped")
		return
	}
	report.AddMessage(PhaseUpload, ref.String(), "ingested as "+string(result.Format)+", size "+strconv.FormatInt(ref.size, 10))

	if w.Labels == nil {
		return
	}
	labels := map[string]string{"source": "quay", "importer": w.Name, "file": ref.String()}
	if err := w.Labels(ctx, result, labels); err != nil {
		report.AddError(PhaseUpload, ref.String(), "set labels: "+err.Error())
	}
}

func (w *QuayWalker) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return http.DefaultClient
}

func (w *QuayWalker) apiBaseURL() string {
	if w.Config.APIBaseURL != "" {
		return w.Config.APIBaseURL
	}
	if w.APIBaseURL != "" {
		return w.APIBaseURL
	}
	return "https://quay.io"
}

func (w *QuayWalker) requestTimeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 60 * time.Second
}
