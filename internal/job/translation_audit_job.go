package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/metrics"
)

// UntranslatedLister reports documents stored without their translation.
type UntranslatedLister interface {
	ListUntranslated(ctx context.Context) ([]int64, error)
}

// TranslationAuditJob checks that every document still has its translation.
// Any hit means a write escaped the atomic insert.
type TranslationAuditJob struct {
	docs UntranslatedLister
}

func NewTranslationAuditJob(docs UntranslatedLister) *TranslationAuditJob {
	return &TranslationAuditJob{docs: docs}
}

func (j *TranslationAuditJob) Name() string {
	return "translation_audit"
}

func (j *TranslationAuditJob) Run(ctx context.Context) error {
	if j.docs == nil {
		return nil
	}
	ids, err := j.docs.ListUntranslated(ctx)
	if err != nil {
		return fmt.Errorf("list untranslated documents: %w", err)
	}
	metrics.UntranslatedDocuments.Set(float64(len(ids)))
	if len(ids) == 0 {
		return nil
	}
	logutil.GetLogger(ctx).Error("documents without translation", zap.Int64s("document_ids", ids))
	return fmt.Errorf("%d documents without translation", len(ids))
}
