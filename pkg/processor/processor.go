// Package processor runs the document pipeline: clean, classify, extract,
// match, persist, emit.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	documentrepo "github.com/Ramsey-B/fern/internal/repositories/document"
	matchreviewrepo "github.com/Ramsey-B/fern/internal/repositories/matchreview"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ocr"
	"github.com/Ramsey-B/fern/pkg/textclean"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds processor behavior toggles
type Config struct {
	// AutoTrain retrains the model after processing once the sample pool is
	// large enough
	AutoTrain bool
	// MinSamplesForTraining gates auto retraining
	MinSamplesForTraining int
}

// Result is the outcome of processing one document end to end
type Result struct {
	Document       *models.Document            `json:"document"`
	Classification models.ClassificationResult `json:"classification"`
	Extraction     *models.ExtractionResult    `json:"extraction,omitempty"`
	Match          *models.MatchResult         `json:"match,omitempty"`
	Duplicate      bool                        `json:"duplicate"`
}

// Processor wires the pipeline stages together. The emitter, link service and
// recognizer are optional; a nil value disables that stage.
type Processor struct {
	logger     ectologger.Logger
	classifier *classifier.HybridClassifier
	extractor  *extractor.Extractor
	matcher    *matching.Matcher
	docRepo    *documentrepo.Repository
	reviewRepo *matchreviewrepo.Repository
	emitter    *events.Emitter
	links      *graph.LinkService
	recognizer ocr.Recognizer
	config     Config
}

// NewProcessor creates a new pipeline processor
func NewProcessor(
	logger ectologger.Logger,
	hybrid *classifier.HybridClassifier,
	extract *extractor.Extractor,
	matcher *matching.Matcher,
	docRepo *documentrepo.Repository,
	reviewRepo *matchreviewrepo.Repository,
	emitter *events.Emitter,
	links *graph.LinkService,
	recognizer ocr.Recognizer,
	config Config,
) *Processor {
	return &Processor{
		logger:     logger,
		classifier: hybrid,
		extractor:  extract,
		matcher:    matcher,
		docRepo:    docRepo,
		reviewRepo: reviewRepo,
		emitter:    emitter,
		links:      links,
		recognizer: recognizer,
		config:     config,
	}
}

// ProcessSubmission resolves a submission to page text and runs the pipeline.
// Submissions without inline pages go through OCR first.
func (p *Processor) ProcessSubmission(ctx context.Context, sub *models.DocumentSubmission) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessSubmission")
	defer span.End()

	pages := sub.Pages
	if len(pages) == 0 {
		if p.recognizer == nil {
			return nil, fmt.Errorf("submission %s has no pages and OCR is not configured", sub.FileName)
		}
		recognized, err := p.recognizer.RecognizeFile(ctx, sub.FilePath)
		if err != nil {
			return nil, err
		}
		pages = recognized
	}

	return p.Process(ctx, sub.TenantID, sub.FileName, pages)
}

// Process runs the full pipeline over raw page texts. An already-seen
// fingerprint short-circuits with the stored document.
func (p *Processor) Process(ctx context.Context, tenantID string, fileName string, pages []models.PageText) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.Process")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"file_name": fileName,
	})

	cleaned := make([]models.PageText, len(pages))
	for i, page := range pages {
		cleaned[i] = page
		cleaned[i].CleanedText = textclean.Clean(page.CleanedText)
	}
	print := fingerprint.FromPages(cleaned)

	if existing, err := p.docRepo.GetByFingerprint(ctx, tenantID, print); err != nil {
		return nil, err
	} else if existing != nil {
		log.WithField("document_id", existing.ID).Info("Duplicate document, skipping pipeline")
		return &Result{Document: existing, Duplicate: true}, nil
	}

	texts := make([]string, len(cleaned))
	for i, page := range cleaned {
		texts[i] = page.CleanedText
	}

	doc, err := p.docRepo.Create(ctx, &models.Document{
		TenantID:    tenantID,
		FileName:    fileName,
		Fingerprint: print,
		Content:     strings.Join(texts, "\n"),
		PageCount:   len(cleaned),
	})
	if err != nil {
		return nil, err
	}

	result, err := p.runPipeline(ctx, doc, cleaned)
	if err != nil {
		doc.Status = models.DocumentStatusFailed
		if updateErr := p.docRepo.UpdateResult(ctx, doc); updateErr != nil {
			log.WithError(updateErr).Error("Failed to mark document as failed")
		}
		if p.emitter != nil {
			if emitErr := p.emitter.EmitDocumentFailed(ctx, tenantID, doc.ID, err.Error()); emitErr != nil {
				log.WithError(emitErr).Warn("Failed to emit failure event")
			}
		}
		return nil, err
	}

	if p.config.AutoTrain {
		p.maybeTrain(ctx)
	}

	return result, nil
}

func (p *Processor) runPipeline(ctx context.Context, doc *models.Document, pages []models.PageText) (*Result, error) {
	log := p.logger.WithContext(ctx).WithField("document_id", doc.ID)

	classification := p.classifier.ClassifyPages(ctx, pages, classifier.ClassifyOptions{})
	doc.DocType = classification.DocType
	doc.Confidence = classification.Confidence
	doc.Method = classification.Method

	if p.emitter != nil {
		if err := p.emitter.EmitDocumentClassified(ctx, doc, classification); err != nil {
			log.WithError(err).Warn("Failed to emit classification event")
		}
	}

	extraction := p.extractDocument(ctx, pages)
	keyInfo, err := json.Marshal(extraction.KeyInfo)
	if err != nil {
		return nil, err
	}
	doc.KeyInfo = keyInfo

	if p.emitter != nil {
		if err := p.emitter.EmitDocumentExtracted(ctx, doc, extraction.KeyInfo); err != nil {
			log.WithError(err).Warn("Failed to emit extraction event")
		}
	}

	result := &Result{
		Document:       doc,
		Classification: classification,
		Extraction:     extraction,
	}

	if p.matcher != nil && p.matcher.RegistryLoaded() {
		match, err := p.matcher.MatchDocument(ctx, extraction.KeyInfo)
		if err != nil {
			return nil, err
		}
		result.Match = match

		if err := p.persistMatch(ctx, doc, match); err != nil {
			return nil, err
		}

		if p.emitter != nil {
			if err := p.emitter.EmitDocumentMatched(ctx, doc, match); err != nil {
				log.WithError(err).Warn("Failed to emit match event")
			}
		}
	}

	doc.Status = models.DocumentStatusProcessed
	if err := p.docRepo.UpdateResult(ctx, doc); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"doc_type":   doc.DocType,
		"confidence": doc.Confidence,
		"method":     doc.Method,
		"matched":    doc.PropertyID != nil,
	}).Info("Document processed")

	return result, nil
}

// extractDocument extracts over the concatenated text for the document-level
// key info and per page for segmentation detail.
func (p *Processor) extractDocument(ctx context.Context, pages []models.PageText) *models.ExtractionResult {
	_, span := tracing.StartSpan(ctx, "processor.Processor.extractDocument")
	defer span.End()

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.CleanedText
	}
	full := strings.Join(texts, "\n")

	result := &models.ExtractionResult{
		KeyInfo: p.extractor.ExtractKeyInfo(full),
		AllInfo: p.extractor.ExtractAll(full),
	}

	for _, page := range pages {
		pageInfo := p.extractor.ExtractKeyInfo(page.CleanedText)
		if len(pageInfo) == 0 {
			continue
		}
		result.PageInfo = append(result.PageInfo, models.PageExtraction{
			PageIndex: page.PageIndex,
			KeyInfo:   pageInfo,
		})
	}

	return result
}

// persistMatch stores the proposed candidates and applies the auto match if
// one cleared the threshold.
func (p *Processor) persistMatch(ctx context.Context, doc *models.Document, match *models.MatchResult) error {
	if p.reviewRepo != nil && len(match.AllMatches) > 0 {
		reviews := make([]*models.MatchReview, 0, len(match.AllMatches))
		for _, candidate := range match.AllMatches {
			reviews = append(reviews, &models.MatchReview{
				TenantID:     doc.TenantID,
				DocumentID:   doc.ID,
				PropertyID:   candidate.PropertyID,
				MatchedField: candidate.MatchedField,
				Similarity:   candidate.Similarity,
			})
		}
		if err := p.reviewRepo.CreateBatch(ctx, reviews); err != nil {
			return err
		}
	}

	if match.AutoMatch == nil {
		return nil
	}

	propertyID := match.AutoMatch.PropertyID
	doc.PropertyID = &propertyID

	if p.reviewRepo != nil {
		if err := p.reviewRepo.MarkAuto(ctx, doc.TenantID, doc.ID, propertyID); err != nil {
			return err
		}
	}

	if p.links != nil {
		if err := p.links.LinkMatched(ctx, doc, match.AutoMatch, false); err != nil {
			// Graph is a projection; failures must not fail the pipeline.
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to write graph link")
		}
	}

	return nil
}

// maybeTrain retrains incrementally when the pool has grown enough. Errors
// are logged, not returned; training never fails document processing.
func (p *Processor) maybeTrain(ctx context.Context) {
	count, err := p.classifier.SampleCount()
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to read sample pool size")
		return
	}
	if count < p.config.MinSamplesForTraining {
		return
	}

	result, err := p.classifier.Train(ctx, true)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Auto training failed")
		return
	}

	if p.emitter != nil && result.Trained {
		if err := p.emitter.EmitModelTrained(ctx, "", result.SampleCount, result.ClassCount, result.Incremental); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit model.trained event")
		}
	}
}
