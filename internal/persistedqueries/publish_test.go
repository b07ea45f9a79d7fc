package persistedqueries

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/n9te9/supergraph-dev/internal/dev/registryclient"
)

type stubClient struct {
	graphRef, manifestPath string
	fail                   bool
}

func (c *stubClient) FetchSubgraph(registryclient.SubgraphFetchInput) (registryclient.SubgraphFetchResult, error) {
	return registryclient.SubgraphFetchResult{}, fmt.Errorf("not used by these tests")
}

func (c *stubClient) PublishPersistedQueries(graphRef, manifestPath string) error {
	if c.fail {
		return fmt.Errorf("publish failed")
	}
	c.graphRef = graphRef
	c.manifestPath = manifestPath
	return nil
}

func writeManifest(t *testing.T, dir string, ops int) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.json")
	body := `{"operations":[`
	for i := 0; i < ops; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"id":"1","name":"Op","body":"query Op { x }"}`
	}
	body += `]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestRunPublishesManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, 3)

	client := &stubClient{}
	n, err := Run(Input{GraphRef: "my-graph@prod", ManifestPath: path}, client, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 operations, got %d", n)
	}
	if client.graphRef != "my-graph@prod" || client.manifestPath != path {
		t.Fatalf("unexpected call: %+v", client)
	}
}

func TestRunRejectsMissingGraphRef(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, 1)
	if _, err := Run(Input{ManifestPath: path}, &stubClient{}, nil); err == nil {
		t.Fatal("expected an error for a missing graph ref")
	}
}

func TestRunRejectsInvalidManifestJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := Run(Input{GraphRef: "g@v", ManifestPath: path}, &stubClient{}, nil); err == nil {
		t.Fatal("expected an error for invalid manifest JSON")
	}
}

func TestRunPropagatesClientError(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, 1)
	if _, err := Run(Input{GraphRef: "g@v", ManifestPath: path}, &stubClient{fail: true}, nil); err == nil {
		t.Fatal("expected the client's publish error to propagate")
	}
}
