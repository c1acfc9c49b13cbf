package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/dto"
	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/timetable"
	appErrors "github.com/timegrid/timegrid-api/pkg/errors"
	"github.com/timegrid/timegrid-api/pkg/export"
	"github.com/timegrid/timegrid-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders stored timetable versions into downloadable files.
type ExportService struct {
	versions  timetableVersionReader
	config    schoolConfigReader
	teachers  teacherRosterReader
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportServiceConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	versions timetableVersionReader,
	config schoolConfigReader,
	teachers teacherRosterReader,
	store fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportServiceConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		versions:  versions,
		config:    config,
		teachers:  teachers,
		storage:   store,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders a version and stores the artifact behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	version, err := s.versions.FindByID(ctx, req.VersionID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable version")
	}
	base, err := version.Decode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode timetable entries")
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school config")
	}

	var dataset export.Dataset
	var title string
	if req.View == "teacher" {
		names, err := s.teacherNames(ctx)
		if err != nil {
			return nil, err
		}
		dataset = teacherViewDataset(base, cfg, names)
		title = fmt.Sprintf("Teacher timetable v%d", version.Version)
	} else {
		dataset = classViewDataset(base, cfg)
		title = fmt.Sprintf("Class timetable v%d", version.Version)
	}

	var payload []byte
	switch req.Format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", req.Format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("timetable_v%d_%s_%s.%s",
		version.Version, req.View, time.Now().UTC().Format("20060102_150405"), req.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(version.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("timetable exported",
		zap.String("version_id", version.ID),
		zap.String("format", req.Format),
		zap.Int("bytes", len(payload)),
	)

	return &dto.ExportResponse{
		FileName:  filename,
		URL:       fmt.Sprintf("%s/exports/download/%s", prefix, token),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		SizeBytes: len(payload),
	}, nil
}

// Open validates a signed token and returns the stored file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, nil
}

// Cleanup removes artifacts older than the retention TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) teacherNames(ctx context.Context) (map[string]string, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FullName
	}
	return names, nil
}

// classViewDataset lays out one row per class and period with day columns.
func classViewDataset(tt models.Timetable, cfg models.SchoolConfig) export.Dataset {
	headers := append([]string{"Class", "Period"}, cfg.Days...)
	classes := tt.Classes()

	var rows []map[string]string
	for _, classID := range classes {
		for period := 0; period < cfg.PeriodsPerDay; period++ {
			row := map[string]string{"Class": classID, "Period": strconv.Itoa(period + 1)}
			for day, dayName := range cfg.Days {
				row[dayName] = cellLabel(tt, cfg, classID, day, period)
			}
			rows = append(rows, row)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// teacherViewDataset lays out one row per teacher and period.
func teacherViewDataset(tt models.Timetable, cfg models.SchoolConfig, names map[string]string) export.Dataset {
	headers := append([]string{"Teacher", "Period"}, cfg.Days...)
	view := timetable.InvertToTeacherView(tt)

	teacherIDs := make([]string, 0, len(view))
	for id := range view {
		teacherIDs = append(teacherIDs, id)
	}
	sort.Strings(teacherIDs)

	var rows []map[string]string
	for _, teacherID := range teacherIDs {
		label := names[teacherID]
		if label == "" {
			label = teacherID
		}
		for period := 0; period < cfg.PeriodsPerDay; period++ {
			row := map[string]string{"Teacher": label, "Period": strconv.Itoa(period + 1)}
			for day, dayName := range cfg.Days {
				value := ""
				if cfg.IsBreak(period) {
					value = cfg.BreakName(period)
				} else if ta, ok := view[teacherID][models.Slot{Day: day, Period: period}]; ok {
					value = fmt.Sprintf("%s (%s)", ta.Subject, ta.ClassID)
				}
				row[dayName] = value
			}
			rows = append(rows, row)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func cellLabel(tt models.Timetable, cfg models.SchoolConfig, classID string, day, period int) string {
	if cfg.IsBreak(period) {
		return cfg.BreakName(period)
	}
	entry, ok := tt[models.SlotRef{ClassID: classID, Day: day, Period: period}]
	if !ok || entry.IsFree() {
		return models.FreePeriod
	}
	return entry.Subject
}
