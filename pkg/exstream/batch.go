package exstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrEmptyBatchOperation = errors.New("batch operation has no request")
	ErrBatchFailed         = errors.New("batch failed")
)

// DefaultBatchConcurrency bounds the number of requests in flight.
const DefaultBatchConcurrency = 5

// BatchOperation is one generation or fulfillment request of a batch.
// Exactly one of Generate and Fulfill is set.
type BatchOperation struct {
	ID       string
	Domain   string
	Generate *GenerateRequest
	Fulfill  *FulfillRequest
	Callback func(result *BatchResult)
}

// BatchResult is the outcome of a single operation.
type BatchResult struct {
	ID       string
	Success  bool
	Outputs  []GeneratedOutput
	Error    error
	Duration time.Duration
}

// BatchExecutor submits output requests concurrently.
type BatchExecutor struct {
	outputs     OutputsClient
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(outputs OutputsClient, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	return &BatchExecutor{
		outputs:     outputs,
		concurrency: concurrency,
		timeout:     constants.ExtendedHTTPTimeout,
	}
}

// SetTimeout sets the per-operation timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs every operation and returns one result per operation, in
// input order. The error aggregates the failed operations.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	var failed *multierror.Error

	for _, result := range results {
		if result.Error != nil {
			failed = multierror.Append(failed, fmt.Errorf("%s: %w", result.ID, result.Error))
		}
	}

	if failed != nil {
		return results, fmt.Errorf("%w: %w", ErrBatchFailed, failed)
	}

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	switch {
	case operation.Generate != nil:
		result.Outputs, result.Error = b.outputs.Generate(ctx, operation.Domain, operation.Generate)
	case operation.Fulfill != nil:
		result.Outputs, result.Error = b.outputs.Fulfill(ctx, operation.Domain, operation.Fulfill)
	default:
		result.Error = ErrEmptyBatchOperation
	}

	result.Success = result.Error == nil

	return result
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: []BatchOperation{},
	}
}

// AddGenerate adds an on-demand generation.
func (b *BatchBuilder) AddGenerate(id, domain string, request *GenerateRequest) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Domain:   domain,
		Generate: request,
	})

	return b
}

// AddFulfill adds a fulfillment of an Empower document.
func (b *BatchBuilder) AddFulfill(id, domain string, request *FulfillRequest) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:      id,
		Domain:  domain,
		Fulfill: request,
	})

	return b
}

// AddOperation adds a prepared operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
