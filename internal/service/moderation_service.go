package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/media"
	"go-gin-event-admission/internal/metrics"
	"go-gin-event-admission/internal/model"
	"go-gin-event-admission/internal/moderation"
	"go-gin-event-admission/internal/queue"
	"go-gin-event-admission/internal/repository"
	apperrors "go-gin-event-admission/pkg/app_errors"
	"go-gin-event-admission/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	PhotoContentTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
	}
	VideoContentTypes = map[string]bool{
		"video/mp4":        true,
		"video/x-matroska": true,
		"video/x-msvideo":  true,
		"video/quicktime":  true,
	}
)

type ModerationService interface {
	// 上傳照片：標籤偵測 → 相關性判斷 → 原子附加
	SubmitPhoto(ctx context.Context, submission model.PhotoSubmission) (*model.ModerationResult, error)
	// 上傳影片：只檢查報名資格，不做審核
	SubmitVideos(ctx context.Context, eventID uuid.UUID, principal string, files []model.MediaFile) (*model.VideoUploadResult, error)
}

type ModerationServiceImpl struct {
	store           repository.EventStore
	media           media.MediaStore
	detector        moderation.LabelDetector
	classifier      moderation.RelevanceClassifier
	labelCaller     *moderation.Caller
	relevanceCaller *moderation.Caller
	outcomes        queue.OutcomeQueue
	cfg             config.ModerationConfig
	maxFileSize     int64
}

// NewModerationService wires the pipeline. outcomes may be nil, in which case
// outcomes are only counted in metrics.
func NewModerationService(
	store repository.EventStore,
	mediaStore media.MediaStore,
	detector moderation.LabelDetector,
	classifier moderation.RelevanceClassifier,
	outcomes queue.OutcomeQueue,
	cfg config.ModerationConfig,
	upload config.UploadConfig,
) *ModerationServiceImpl {
	return &ModerationServiceImpl{
		store:           store,
		media:           mediaStore,
		detector:        detector,
		classifier:      classifier,
		labelCaller:     moderation.NewCaller("label", cfg.LabelAttempts, cfg),
		relevanceCaller: moderation.NewCaller("relevance", cfg.RelevanceAttempts, cfg),
		outcomes:        outcomes,
		cfg:             cfg,
		maxFileSize:     upload.MaxFileSize,
	}
}

// submission tracks one photo through the moderation states.
type submission struct {
	model.PhotoSubmission
	requestID string
	state     model.SubmissionState
	log       *zap.Logger
}

func (s *submission) advance(to model.SubmissionState) {
	if !s.state.CanTransitionTo(to) {
		// 程式錯誤，不是使用者能觸發的狀況
		panic(fmt.Sprintf("invalid submission transition %s -> %s", s.state, to))
	}
	s.log.Debug("submission state", zap.String("from", string(s.state)), zap.String("to", string(to)))
	s.state = to
}

func (s *ModerationServiceImpl) validateFile(file model.MediaFile, allowed map[string]bool) error {
	if len(file.Data) == 0 {
		return fmt.Errorf("%w: empty file", apperrors.ErrInvalidInput)
	}
	if !allowed[file.ContentType] {
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedMediaType, file.ContentType)
	}
	if s.maxFileSize > 0 && int64(len(file.Data)) > s.maxFileSize {
		return fmt.Errorf("%w: file exceeds %d bytes", apperrors.ErrInvalidInput, s.maxFileSize)
	}
	return nil
}

// registeredEvent is the advisory read done before any external call. The
// store append remains the only commit point.
func (s *ModerationServiceImpl) registeredEvent(ctx context.Context, eventID uuid.UUID, principal string) (*model.Event, error) {
	event, err := s.store.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsRegistered(principal) {
		return nil, apperrors.ErrNotRegistered
	}
	return event, nil
}

func (s *ModerationServiceImpl) SubmitPhoto(ctx context.Context, in model.PhotoSubmission) (*model.ModerationResult, error) {
	file := model.MediaFile{Data: in.Image, ContentType: in.ContentType, Filename: in.Filename}
	if err := s.validateFile(file, PhotoContentTypes); err != nil {
		return nil, err
	}

	event, err := s.registeredEvent(ctx, in.EventID, in.Principal)
	if err != nil {
		return nil, err
	}

	sub := &submission{
		PhotoSubmission: in,
		requestID:       uuid.NewString(),
		state:           model.SubmissionSubmitted,
	}
	sub.log = logger.WithComponent("moderation").With(
		zap.String("request_id", sub.requestID),
		zap.String("event_id", in.EventID.String()),
	)

	labels, err := s.detectLabels(ctx, in.Image)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, err
		}
		s.publish(ctx, sub, model.OutcomeUnavailable, nil, "")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLabelServiceUnavailable, err)
	}

	labels = moderation.FilterLabels(labels, s.cfg.MinConfidence, s.cfg.MaxLabels)
	if len(labels) == 0 {
		// 沒有可信的標籤就無法判斷，直接拒絕
		sub.advance(model.SubmissionRejected)
		s.publish(ctx, sub, model.OutcomeUnableToVerify, labels, "")
		return &model.ModerationResult{Accepted: false, Reason: model.ReasonUnableToVerify, Labels: labels}, nil
	}
	sub.advance(model.SubmissionLabelsDetected)

	verdict, err := s.classify(ctx, moderation.BuildPrompt(labels, event))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.publish(ctx, sub, model.OutcomeUnavailable, labels, "")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRelevanceServiceUnavailable, err)
	}
	sub.advance(model.SubmissionRelevanceEvaluated)

	switch verdict {
	case model.VerdictNotRelevant:
		sub.advance(model.SubmissionRejected)
		s.publish(ctx, sub, model.OutcomeNotRelevant, labels, "")
		return &model.ModerationResult{Accepted: false, Reason: model.ReasonNotRelevant, Labels: labels}, nil
	case model.VerdictIndeterminate:
		sub.advance(model.SubmissionRejected)
		s.publish(ctx, sub, model.OutcomeUnableToVerify, labels, "")
		return &model.ModerationResult{Accepted: false, Reason: model.ReasonUnableToVerify, Labels: labels}, nil
	}

	ref, err := s.media.Put(ctx, media.PhotoFolder, file)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: store photo: %v", apperrors.ErrInternalServerError, err)
	}

	count, err := s.store.AppendPhoto(ctx, in.EventID, ref)
	if err != nil {
		// 附加失敗（活動已刪除等），移除孤兒檔案
		s.discard(ctx, sub.log, ref)
		return nil, err
	}

	sub.advance(model.SubmissionAccepted)
	s.publish(ctx, sub, model.OutcomeAccepted, labels, ref)
	sub.log.Info("photo accepted", zap.String("photo_ref", ref), zap.Int("upload_count", count.UploadCount))

	return &model.ModerationResult{
		Accepted:    true,
		PhotoRef:    ref,
		Labels:      labels,
		UploadCount: count.UploadCount,
	}, nil
}

func (s *ModerationServiceImpl) detectLabels(ctx context.Context, image []byte) ([]model.Label, error) {
	var labels []model.Label
	err := s.labelCaller.Do(ctx, func(ctx context.Context) error {
		var err error
		labels, err = s.detector.DetectLabels(ctx, image)
		return err
	})
	return labels, err
}

// classify asks the classifier and re-asks with the same prompt while the
// answer is indeterminate and re-asks remain.
func (s *ModerationServiceImpl) classify(ctx context.Context, prompt string) (model.Verdict, error) {
	verdict := model.VerdictIndeterminate
	for ask := 0; ask <= s.cfg.IndeterminateRetries; ask++ {
		var answer string
		err := s.relevanceCaller.Do(ctx, func(ctx context.Context) error {
			var err error
			answer, err = s.classifier.Classify(ctx, prompt)
			return err
		})
		if err != nil {
			return model.VerdictIndeterminate, err
		}

		verdict = moderation.ParseVerdict(answer)
		if verdict != model.VerdictIndeterminate {
			return verdict, nil
		}
		metrics.ExternalCalls.WithLabelValues("relevance", "indeterminate").Inc()
		logger.WithComponent("moderation").Warn("indeterminate classifier answer", zap.Int("ask", ask+1))
	}
	return verdict, nil
}

// publish is best-effort: failures are logged and counted, never returned.
func (s *ModerationServiceImpl) publish(ctx context.Context, sub *submission, status model.OutcomeStatus, labels []model.Label, ref string) {
	metrics.ModerationOutcomes.WithLabelValues(string(status)).Inc()
	if s.outcomes == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	err := s.outcomes.PublishOutcome(pubCtx, &model.ModerationOutcome{
		RequestID: sub.requestID,
		EventID:   sub.EventID,
		Principal: sub.Principal,
		Status:    status,
		Labels:    labels,
		PhotoRef:  ref,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		metrics.OutcomePublishFailures.Inc()
		sub.log.Warn("publish moderation outcome failed", zap.Error(err))
	}
}

func (s *ModerationServiceImpl) discard(ctx context.Context, log *zap.Logger, refs ...string) {
	// 請求取消時仍要清掉檔案
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for _, ref := range refs {
		if err := s.media.Delete(cleanupCtx, ref); err != nil {
			log.Error("remove orphaned media failed", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func (s *ModerationServiceImpl) SubmitVideos(ctx context.Context, eventID uuid.UUID, principal string, files []model.MediaFile) (*model.VideoUploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no video uploaded", apperrors.ErrInvalidInput)
	}
	for _, f := range files {
		if err := s.validateFile(f, VideoContentTypes); err != nil {
			return nil, err
		}
	}

	if _, err := s.registeredEvent(ctx, eventID, principal); err != nil {
		return nil, err
	}

	log := logger.WithComponent("moderation").With(zap.String("event_id", eventID.String()))
	refs := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := s.media.Put(ctx, media.VideoFolder, f)
		if err != nil {
			s.discard(ctx, log, refs...)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: store video: %v", apperrors.ErrInternalServerError, err)
		}
		refs = append(refs, ref)
	}

	count, err := s.store.AppendVideos(ctx, eventID, refs)
	if err != nil {
		s.discard(ctx, log, refs...)
		return nil, err
	}

	return &model.VideoUploadResult{Videos: refs, VideoCount: count.VideoCount}, nil
}
