package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBeforeInit(t *testing.T) {
	// must not panic while collectors are nil
	if validations == nil {
		ObserveValidation("LE01ESTADO", true)
		ObserveInsert("LE01ESTADO", ResultValid, time.Millisecond)
		AddLoad("LE01ESTADO", 1, 1)
		SetLoadStatus(1)
	}
}

func TestObserveValidation(t *testing.T) {
	Init()
	Init()
	ObserveValidation("LE09CARGO", true)
	ObserveValidation("LE09CARGO", false)
	ObserveValidation("LE09CARGO", false)
	if got := testutil.ToFloat64(validations.WithLabelValues("LE09CARGO", ResultInvalid)); got != 2 {
		t.Errorf("expected 2 invalid validations, got %v", got)
	}
	if got := testutil.ToFloat64(validations.WithLabelValues("LE09CARGO", ResultValid)); got != 1 {
		t.Errorf("expected 1 valid validation, got %v", got)
	}
}

func TestAddLoad(t *testing.T) {
	Init()
	AddLoad("LE02CIDADE", 3, 2)
	if got := testutil.ToFloat64(loadDocuments.WithLabelValues("LE02CIDADE", ResultValid)); got != 3 {
		t.Errorf("expected 3 inserted documents, got %v", got)
	}
	if got := testutil.ToFloat64(loadDocuments.WithLabelValues("LE02CIDADE", ResultInvalid)); got != 2 {
		t.Errorf("expected 2 rejected documents, got %v", got)
	}
}

func TestSetLoadStatus(t *testing.T) {
	Init()
	SetLoadStatus(2)
	if got := testutil.ToFloat64(loadStatus); got != 2 {
		t.Errorf("expected status 2, got %v", got)
	}
}
