package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

type ExcelGenerator interface {
	Generate(report model.RequestReport) ([]byte, error)
}

type CertificateGenerator interface {
	Generate(doc model.Certificate) ([]byte, error)
}

type ReportService struct {
	store       repository.Store
	excel       ExcelGenerator
	certificate CertificateGenerator
	log         zerolog.Logger
	now         func() time.Time
}

type ExportRequestsInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Principal   model.Principal
}

// Document is a rendered file ready to be streamed to the caller.
type Document struct {
	FileName    string
	ContentType string
	Content     []byte
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

func NewReportService(store repository.Store, excel ExcelGenerator, certificate CertificateGenerator, log zerolog.Logger) *ReportService {
	return &ReportService{
		store:       store,
		excel:       excel,
		certificate: certificate,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ExportAgencyRequests renders the calling agency's requests created within the period, both days inclusive.
func (s *ReportService) ExportAgencyRequests(ctx context.Context, input ExportRequestsInput) (*Document, error) {
	if !input.Principal.IsAgency() {
		return nil, ErrPermissionDenied
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}

	periodStart := dateOnly(input.PeriodStart)
	periodEnd := dateOnly(input.PeriodEnd)
	if periodStart.After(periodEnd) {
		return nil, fmt.Errorf("%w: period_start must be before or equal to period_end", ErrInvalidInput)
	}
	endExclusive := periodEnd.Add(24 * time.Hour)

	agency, err := s.store.Accounts().GetAgency(ctx, input.Principal.ID)
	if err != nil {
		return nil, storeError(err, "agency")
	}
	requests, err := s.store.Requests().ListByAgencyBetween(ctx, agency.ID, periodStart, endExclusive)
	if err != nil {
		return nil, err
	}

	report := model.RequestReport{
		Agency:      *agency,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Requests:    requests,
	}
	content, err := s.excel.Generate(report)
	if err != nil {
		return nil, err
	}

	return &Document{
		FileName:    buildReportFileName(report),
		ContentType: xlsxContentType,
		Content:     content,
	}, nil
}

// Certificate renders the recycling certificate of a completed request for anyone who may view it.
func (s *ReportService) Certificate(ctx context.Context, principal model.Principal, requestID uuid.UUID) (*Document, error) {
	req, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request")
	}
	if !canView(req, principal) {
		return nil, ErrPermissionDenied
	}
	if req.Status != model.RequestStatusCompleted {
		return nil, fmt.Errorf("%w: certificate is only issued for completed requests", ErrInvalidTransition)
	}

	user, err := s.store.Accounts().GetUser(ctx, req.UserID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	agency, err := s.store.Accounts().GetAgency(ctx, req.AgencyID)
	if err != nil {
		return nil, storeError(err, "agency")
	}

	content, err := s.certificate.Generate(model.Certificate{
		Request:       *req,
		User:          *user,
		Agency:        *agency,
		PointsAwarded: PointsFor(req.Items),
		IssuedAt:      s.now(),
	})
	if err != nil {
		return nil, err
	}
	return &Document{
		FileName:    fmt.Sprintf("certificate-%s.pdf", req.ID),
		ContentType: pdfContentType,
		Content:     content,
	}, nil
}

func buildReportFileName(report model.RequestReport) string {
	target := sanitizeFileName(report.Agency.Name)
	if target == "" {
		target = report.Agency.ID.String()
	}
	period := fmt.Sprintf("%s-%s", report.PeriodStart.Format("20060102"), report.PeriodEnd.Format("20060102"))
	return fmt.Sprintf("requests-%s-%s.xlsx", target, period)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range strings.ToLower(input) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			result = append(result, r)
		case r == ' ' || r == '-' || r == '_':
			if len(result) > 0 && result[len(result)-1] != '-' {
				result = append(result, '-')
			}
		}
	}
	return strings.Trim(string(result), "-")
}
