package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/h2non/filetype"
	"github.com/hashicorp/go-retryablehttp"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

const maxPDFBytes = 10 << 20

var ErrNotPDF = errors.New("renderer did not return a pdf")

type PDFSettings struct {
	RendererURL string
	Timeout     time.Duration
	KeyPrefix   string
}

// PDFGenerator renders an invoice through the document renderer service, checks the bytes
// really are a PDF and stores them, returning a presigned link.
type PDFGenerator struct {
	client   *retryablehttp.Client
	store    ObjectStore
	settings PDFSettings
	log      *logger.Logger
}

var _ interfaces.IPDFGenerator = (*PDFGenerator)(nil)

func NewPDFGenerator(settings PDFSettings, store ObjectStore, log *logger.Logger) *PDFGenerator {
	if settings.Timeout <= 0 {
		settings.Timeout = 20 * time.Second
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = settings.Timeout
	client.Logger = nil
	return &PDFGenerator{client: client, store: store, settings: settings, log: logger.OrNop(log).Named("pdf")}
}

func (g *PDFGenerator) GenerateInvoicePDF(ctx context.Context, inv entities.Invoice) (string, error) {
	body, err := json.Marshal(inv)
	if err != nil {
		return "", errors.Wrap(err, "marshal invoice for renderer")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.settings.RendererURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build renderer request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", entities.External("render invoice pdf", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", entities.External("render invoice pdf", errors.Newf("renderer responded %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return "", errors.Wrap(err, "read rendered pdf")
	}
	kind, _ := filetype.Match(data)
	if kind.Extension != "pdf" {
		return "", errors.Wrapf(ErrNotPDF, "got %q", kind.MIME.Value)
	}

	key := g.objectKey(inv)
	if err := g.store.Put(ctx, key, data, "application/pdf"); err != nil {
		return "", entities.External("store invoice pdf", err)
	}
	url, err := g.store.PresignGet(ctx, key)
	if err != nil {
		return "", entities.External("presign invoice pdf", err)
	}
	g.log.Infow("[documents][pdf] invoice rendered", "invoice_id", inv.ID, "key", key, "bytes", len(data))
	return url, nil
}

func (g *PDFGenerator) objectKey(inv entities.Invoice) string {
	name := inv.InvoiceNumber
	if name == "" {
		name = inv.ID
	}
	return path.Join(g.settings.KeyPrefix, inv.CustomerID, fmt.Sprintf("%s.pdf", name))
}
