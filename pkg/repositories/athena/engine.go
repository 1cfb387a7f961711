// Package athena implements the query engine contract on top of AWS Athena.
package athena

import (
	"context"
	stderrors "errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
	"github.com/skiffdb/skiff/pkg/repositories"
)

// api is the subset of the Athena SDK client the engine uses.
type api interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Engine adapts the Athena SDK client to the QueryEngine contract,
// translating SDK faults into the orchestrator's error taxonomy.
type Engine struct {
	client api
	logger zerolog.Logger
}

var _ repositories.QueryEngine = (*Engine)(nil)

// NewEngine creates a query engine backed by an Athena client.
func NewEngine(client *athena.Client, logger zerolog.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// newEngineWithAPI is the test seam for injecting a fake SDK client.
func newEngineWithAPI(client api, logger zerolog.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// Submit starts a query execution and returns its handle.
func (e *Engine) Submit(ctx context.Context, req *models.ExecutionRequest) (string, error) {
	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(req.Query),
	}
	if req.ClientToken != "" {
		input.ClientRequestToken = aws.String(req.ClientToken)
	}
	if req.Workgroup != "" {
		input.WorkGroup = aws.String(req.Workgroup)
	}
	if req.Database != "" || req.Catalog != "" {
		input.QueryExecutionContext = &types.QueryExecutionContext{}
		if req.Database != "" {
			input.QueryExecutionContext.Database = aws.String(req.Database)
		}
		if req.Catalog != "" {
			input.QueryExecutionContext.Catalog = aws.String(req.Catalog)
		}
	}
	if len(req.Parameters) > 0 {
		input.ExecutionParameters = req.Parameters
	}
	if req.OutputLocation != "" || req.Encryption != nil {
		rc := &types.ResultConfiguration{}
		if req.OutputLocation != "" {
			rc.OutputLocation = aws.String(req.OutputLocation)
		}
		if req.Encryption != nil {
			rc.EncryptionConfiguration = &types.EncryptionConfiguration{
				EncryptionOption: types.EncryptionOption(req.Encryption.Option),
			}
			if req.Encryption.KMSKey != "" {
				rc.EncryptionConfiguration.KmsKey = aws.String(req.Encryption.KMSKey)
			}
		}
		input.ResultConfiguration = rc
	}

	out, err := e.client.StartQueryExecution(ctx, input)
	if err != nil {
		return "", classify(err, "start query execution")
	}
	return aws.ToString(out.QueryExecutionId), nil
}

// Status fetches the current status of an execution.
func (e *Engine) Status(ctx context.Context, handle string) (*models.ExecutionStatus, error) {
	out, err := e.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(handle),
	})
	if err != nil {
		return nil, classify(err, "get query execution")
	}
	qe := out.QueryExecution
	if qe == nil || qe.Status == nil {
		return nil, errors.New(errors.CodeInternal, "engine returned execution without status")
	}

	status := &models.ExecutionStatus{
		State: models.ExecutionState(qe.Status.State),
	}
	if reason := aws.ToString(qe.Status.StateChangeReason); reason != "" {
		status.FailureReason = reason
	} else if qe.Status.AthenaError != nil {
		status.FailureReason = aws.ToString(qe.Status.AthenaError.ErrorMessage)
	}
	if qe.ResultConfiguration != nil {
		status.OutputLocation = aws.ToString(qe.ResultConfiguration.OutputLocation)
	}
	return status, nil
}

// ResultPage fetches one page of structured rows for a completed execution.
func (e *Engine) ResultPage(ctx context.Context, handle string, maxResults int32, nextToken string) (*models.ResultPage, error) {
	input := &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(handle),
		MaxResults:       aws.Int32(maxResults),
	}
	if nextToken != "" {
		input.NextToken = aws.String(nextToken)
	}

	out, err := e.client.GetQueryResults(ctx, input)
	if err != nil {
		return nil, classify(err, "get query results")
	}

	page := &models.ResultPage{NextToken: aws.ToString(out.NextToken)}
	if out.ResultSet == nil {
		return page, nil
	}
	if md := out.ResultSet.ResultSetMetadata; md != nil {
		page.Columns = make(models.Schema, 0, len(md.ColumnInfo))
		for _, ci := range md.ColumnInfo {
			page.Columns = append(page.Columns, models.Column{
				Name: aws.ToString(ci.Name),
				Type: aws.ToString(ci.Type),
			})
		}
	}
	page.Rows = make([]models.RawRow, 0, len(out.ResultSet.Rows))
	for _, row := range out.ResultSet.Rows {
		raw := models.RawRow{Values: make([]*string, len(row.Data))}
		for i, datum := range row.Data {
			raw.Values[i] = datum.VarCharValue
		}
		page.Rows = append(page.Rows, raw)
	}
	return page, nil
}

// throttleCodes are provider error codes classified as throttling.
var throttleCodes = map[string]struct{}{
	"ThrottlingException":           {},
	"Throttling":                    {},
	"RequestThrottled":              {},
	"RequestThrottledException":     {},
	"ProvisionedThroughputExceeded": {},
	"SlowDown":                      {},
}

// classify maps an SDK fault into the orchestrator's taxonomy. The
// transient set is exactly: too-many-requests, throttling, networking
// errors, unknown endpoint. Everything else stays fatal.
func classify(err error, op string) error {
	var tooMany *types.TooManyRequestsException
	if stderrors.As(err, &tooMany) {
		return errors.Wrapf(err, errors.CodeTooManyRequests, "%s throttled by engine", op)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := throttleCodes[code]; ok {
			return errors.Wrapf(err, errors.CodeThrottled, "%s throttled by engine", op)
		}
		if code == "TooManyRequestsException" {
			return errors.Wrapf(err, errors.CodeTooManyRequests, "%s throttled by engine", op)
		}
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return errors.Wrapf(err, errors.CodeUnknownEndpoint, "%s: unknown endpoint", op)
	}
	if strings.Contains(err.Error(), "no such host") {
		return errors.Wrapf(err, errors.CodeUnknownEndpoint, "%s: unknown endpoint", op)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.Wrapf(err, errors.CodeNetwork, "%s: network error", op)
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return errors.Wrapf(err, errors.CodeNetwork, "%s: network error", op)
	}
	if stderrors.Is(err, syscall.ECONNREFUSED) || stderrors.Is(err, syscall.ECONNRESET) {
		return errors.Wrapf(err, errors.CodeNetwork, "%s: network error", op)
	}

	return errors.Wrapf(err, errors.CodeInternal, "%s failed", op)
}
