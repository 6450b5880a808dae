package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sort"
	"strings"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DocumentServiceInterface renders report snapshots
type DocumentServiceInterface interface {
	RenderReport(ctx context.Context, actor models.Actor, reportID int) (*models.ReportDocument, error)
}

// DocumentService renders reports to PDF with gofpdf and keeps the latest snapshot in a FileStore
type DocumentService struct {
	db       *sql.DB
	reports  ReportServiceInterface
	photos   FileStore
	docs     FileStore
	logger   *observability.Logger
	compress bool
}

const (
	pageMargin      = 15.0
	labelWidth      = 50.0
	valueWidth      = 130.0
	imageBoxWidth   = 120.0
	imageBoxHeight  = 90.0
	mmPerPixel      = 25.4 / 96
	imageDecodeJobs = 4

	// fontFamily names the embedded Go fonts. They cover Latin, Greek and Cyrillic text.
	fontFamily = "GoFont"
)

// NewDocumentServiceWithLogger creates a DocumentService. photos is where
// uploaded images are read from; docs receives the rendered PDFs.
func NewDocumentServiceWithLogger(db *sql.DB, reports ReportServiceInterface, photos, docs FileStore, logger *observability.Logger) *DocumentService {
	return &DocumentService{db: db, reports: reports, photos: photos, docs: docs, logger: logger, compress: true}
}

// reportDocumentData is everything the layout needs, loaded up front
type reportDocumentData struct {
	report        *models.Report
	projectName   string
	submitterName string
	approverName  string
	photos        []models.Photo
	images        []*embeddedImage
}

// embeddedImage is a photo re-encoded as JPEG. A nil entry renders as a placeholder.
type embeddedImage struct {
	data          []byte
	width, height int
}

// ReportFileName is the stored snapshot name for a report
func ReportFileName(projectName string, seq int) string {
	safe := strings.ReplaceAll(contextutils.SafeName(projectName), " ", "_")
	return fmt.Sprintf("report_%s_%03d.pdf", safe, seq)
}

// ReportDownloadName is the attachment name offered to browsers
func ReportDownloadName(projectName string, seq int) string {
	return fmt.Sprintf("report_%03d_%s.pdf", seq, contextutils.SafeName(projectName))
}

// RenderReport renders a report the actor can read, stores it and records its path.
// Any rendering failure is DOCUMENT_RENDER_FAILED and leaves no file behind.
func (s *DocumentService) RenderReport(ctx context.Context, actor models.Actor, reportID int) (result0 *models.ReportDocument, err error) {
	ctx, span := observability.TraceDocumentFunction(ctx, "render_report", observability.AttributeReportID(reportID))
	defer observability.FinishSpan(span, &err)

	report, err := s.reports.GetReport(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	data, err := s.load(ctx, report)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := s.renderPDF(data)
	if err != nil {
		return nil, err
	}

	doc := &models.ReportDocument{
		FileName:     ReportFileName(data.projectName, report.SequenceNumber),
		DownloadName: ReportDownloadName(data.projectName, report.SequenceNumber),
		Data:         pdfBytes,
	}
	if err = s.docs.Write(ctx, doc.FileName, pdfBytes); err != nil {
		return nil, err
	}
	if _, err = s.db.ExecContext(ctx, `UPDATE reports SET pdf_path = $1 WHERE id = $2`, doc.FileName, reportID); err != nil {
		return nil, contextutils.WrapError(err, "failed to record document path")
	}

	s.logger.Info(ctx, "Rendered report document", map[string]interface{}{
		"report_id": reportID,
		"file":      doc.FileName,
		"bytes":     len(pdfBytes),
		"photos":    len(data.photos),
	})
	return doc, nil
}

func (s *DocumentService) load(ctx context.Context, report *models.Report) (*reportDocumentData, error) {
	data := &reportDocumentData{report: report}
	err := s.db.QueryRowContext(ctx, `SELECT p.name, COALESCE(su.name, ''), COALESCE(au.name, '')
		FROM projects p
		LEFT JOIN users su ON su.id = $2
		LEFT JOIN users au ON au.id = $3
		WHERE p.id = $1`, report.ProjectID, report.UserID, report.ApproverID).
		Scan(&data.projectName, &data.submitterName, &data.approverName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "project %d not found", report.ProjectID)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load report details")
	}

	data.photos, err = listReportPhotos(ctx, s.db, report.ID)
	if err != nil {
		return nil, err
	}
	data.images = s.loadImages(ctx, data.photos)
	return data, nil
}

// loadImages decodes photos concurrently. Unreadable files yield nil entries.
func (s *DocumentService) loadImages(ctx context.Context, photos []models.Photo) []*embeddedImage {
	images := make([]*embeddedImage, len(photos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageDecodeJobs)
	for i := range photos {
		g.Go(func() error {
			img, err := s.loadImage(gctx, photos[i].FileName)
			if err != nil {
				s.logger.Warn(gctx, "Photo could not be embedded", map[string]interface{}{
					"photo_id": photos[i].ID,
					"file":     photos[i].FileName,
					"error":    err.Error(),
				})
				return nil
			}
			images[i] = img
			return nil
		})
	}
	_ = g.Wait()
	return images
}

func (s *DocumentService) loadImage(ctx context.Context, name string) (*embeddedImage, error) {
	if s.photos == nil {
		return nil, contextutils.ErrorWithContextf("no photo storage configured")
	}
	rc, err := s.photos.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	// JPEG has no alpha channel, so flatten onto white first
	b := src.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, b.Min, draw.Over)

	var buf bytes.Buffer
	if err = jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return &embeddedImage{data: buf.Bytes(), width: b.Dx(), height: b.Dy()}, nil
}

// imageBox converts pixel dimensions to millimetres and shrinks them to the image box
func imageBox(wPx, hPx int) (float64, float64) {
	w, h := float64(wPx)*mmPerPixel, float64(hPx)*mmPerPixel
	scale := 1.0
	if w > imageBoxWidth {
		scale = imageBoxWidth / w
	}
	if h*scale > imageBoxHeight {
		scale = imageBoxHeight / h
	}
	return w * scale, h * scale
}

// titleCase upper-cases the first letter of each word. Casers are stateful, so one is made per call.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func checklistLabel(key string) string {
	return titleCase(strings.ReplaceAll(key, "_", " "))
}

func (s *DocumentService) renderPDF(d *reportDocumentData) (result0 []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			result0, err = nil, contextutils.NewAppError(contextutils.ErrorCodeDocumentRender, contextutils.SeverityError,
				"failed to render report document", fmt.Sprint(r))
		}
	}()

	r := d.report
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(s.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(r.CreatedAt)
	pdf.SetModificationDate(r.UpdatedAt)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", goitalic.TTF)
	if err = pdf.Error(); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDocumentRender, contextutils.SeverityError,
			"failed to load document fonts", err.Error(), err)
	}

	title := fmt.Sprintf("Site Report #%03d", r.SequenceNumber)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Project:", d.projectName},
		{"Date:", r.ReportDate.Format("02/01/2006")},
		{"Responsible:", d.submitterName},
		{"Status:", titleCase(string(r.Status))},
	}
	if r.ApproverID.Valid && d.approverName != "" {
		rows = append(rows, [2]string{"Approver:", d.approverName})
	}
	pdf.SetFont(fontFamily, "", 10)
	for _, row := range rows {
		pdf.SetFillColor(128, 128, 128)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(labelWidth, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(valueWidth, 8, row[1], "1", 1, "L", true, 0, "")
	}
	pdf.Ln(6)

	heading := func(text string) {
		pdf.SetFont(fontFamily, "B", 14)
		pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 10)
	}

	if strings.TrimSpace(r.Activities) != "" {
		heading("Activities")
		pdf.MultiCell(0, 6, r.Activities, "", "L", false)
		pdf.Ln(6)
	}

	if len(r.Checklist) > 0 {
		heading("Checklist")
		keys := make([]string, 0, len(r.Checklist))
		for k := range r.Checklist {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pdf.SetFont(fontFamily, "", 9)
		for _, k := range keys {
			pdf.SetFillColor(173, 216, 230)
			pdf.CellFormat(90, 7, checklistLabel(k), "1", 0, "L", true, 0, "")
			pdf.CellFormat(90, 7, r.Checklist[k], "1", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	if len(d.photos) > 0 {
		heading("Attached Photos")
		_, pageH := pdf.GetPageSize()
		for i, p := range d.photos {
			img := d.images[i]
			if img != nil {
				w, h := imageBox(img.width, img.height)
				if pdf.GetY()+h+12 > pageH-pageMargin {
					pdf.AddPage()
				}
				name := fmt.Sprintf("photo-%d", p.ID)
				opts := gofpdf.ImageOptions{ImageType: "JPG"}
				pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
				y := pdf.GetY()
				pdf.ImageOptions(name, pageMargin, y, w, h, false, opts, 0, "")
				pdf.SetY(y + h + 2)
			} else {
				pdf.SetFont(fontFamily, "I", 9)
				pdf.CellFormat(0, 10, fmt.Sprintf("[image unavailable: %s]", p.FileName), "1", 1, "C", false, 0, "")
				pdf.SetFont(fontFamily, "", 10)
			}
			desc := p.Description
			if strings.TrimSpace(desc) == "" {
				desc = "No description"
			}
			pdf.MultiCell(0, 6, fmt.Sprintf("• %s: %s", p.ServiceType, desc), "", "L", false)
			pdf.Ln(3)
		}
		pdf.Ln(3)
	}

	if r.HasCoordinates() {
		heading("Location")
		pdf.CellFormat(0, 6, fmt.Sprintf("Coordinates: %.6f, %.6f", r.Latitude.Float64, r.Longitude.Float64), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err = pdf.Output(&buf); err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDocumentRender, contextutils.SeverityError,
			"failed to render report document", err.Error(), err)
	}
	return buf.Bytes(), nil
}
