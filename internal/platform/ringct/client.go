package ringct

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/dynamicpb"
)

// retryServiceConfig retries UNAVAILABLE with exponential backoff. Other
// codes surface immediately so the caller can classify them.
const retryServiceConfig = `{
  "methodConfig": [{
    "name": [{"service": "ringct.RingCT_Service"}],
    "retryPolicy": {
      "maxAttempts": 5,
      "initialBackoff": "0.1s",
      "maxBackoff": "1s",
      "backoffMultiplier": 2,
      "retryableStatusCodes": ["UNAVAILABLE"]
    }
  }]
}`

// CallObserver receives one observation per RPC. observability.Metrics
// implements it.
type CallObserver interface {
	ObserveSignerCall(op string, outcome string, elapsed time.Duration)
}

type Options struct {
	Target      string
	CallTimeout time.Duration
	Logger      *slog.Logger
	Observer    CallObserver
	DialOptions []grpc.DialOption
}

// Client is the process-wide handle to the RingCT signer. It is safe for
// concurrent use and must be closed on shutdown.
type Client struct {
	conn     *grpc.ClientConn
	schema   *schema
	timeout  time.Duration
	logger   *slog.Logger
	observer CallObserver
	tracer   trace.Tracer
}

type VoterCurrency struct {
	DistrictID int64
	VoterCount int
	Output     string
}

type CandidateKeys struct {
	DistrictID  int64
	CandidateID int64
	Output      string
}

type VoteRequest struct {
	DistrictID  int64
	CandidateID int64
	VoterID     int64
	IsVoting    bool
}

type VoteReceipt struct {
	DistrictID  int64
	CandidateID int64
	VoterID     int64
	KeyImage    string
	HasVoted    bool
	Output      string
}

type TotalVote struct {
	DistrictIDs []int64
	Output      string
}

type NonVoters struct {
	DistrictIDs []int64
	VoterIDs    []int64
}

func NewClient(opts Options) (*Client, error) {
	target := strings.TrimSpace(opts.Target)
	if target == "" {
		return nil, errors.New("ringct target is required")
	}
	sch, err := loadSchema()
	if err != nil {
		return nil, err
	}

	dialOptions := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(retryServiceConfig),
	}
	dialOptions = append(dialOptions, opts.DialOptions...)
	conn, err := grpc.NewClient(target, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("create ringct client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:     conn,
		schema:   sch,
		timeout:  opts.CallTimeout,
		logger:   logger,
		observer: opts.Observer,
		tracer:   otel.Tracer("evoting/internal/platform/ringct"),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) GenerateVotersAndCurrency(ctx context.Context, districtID int64, voterCount int) (VoterCurrency, error) {
	const op = "generate_voters_and_currency"
	district, err := toInt32(op, "district_id", districtID)
	if err != nil {
		return VoterCurrency{}, err
	}
	if voterCount <= 0 || voterCount > math.MaxInt32 {
		return VoterCurrency{}, invalidInput(op, "voter_num must be positive")
	}

	req := dynamicpb.NewMessage(c.schema.genVoterRequest)
	setInt32(req, "district_id", district)
	setInt32(req, "voter_num", int32(voterCount))
	resp := dynamicpb.NewMessage(c.schema.genVoterResponse)
	if err := c.invoke(ctx, op, methodGenerateVoters, req, resp); err != nil {
		return VoterCurrency{}, err
	}

	if getInt32(resp, "district_id") != district || getInt32(resp, "voter_num") != int32(voterCount) {
		return VoterCurrency{}, c.reject(op, "district_id, voter_num not matching in response")
	}
	return VoterCurrency{
		DistrictID: districtID,
		VoterCount: voterCount,
		Output:     getString(resp, "test_output"),
	}, nil
}

func (c *Client) GenerateCandidateKeys(ctx context.Context, districtID int64, candidateID int64) (CandidateKeys, error) {
	const op = "generate_candidate_keys"
	district, err := toInt32(op, "district_id", districtID)
	if err != nil {
		return CandidateKeys{}, err
	}
	candidate, err := toInt32(op, "candidate_id", candidateID)
	if err != nil {
		return CandidateKeys{}, err
	}

	req := dynamicpb.NewMessage(c.schema.genCandidateRequest)
	setInt32(req, "district_id", district)
	setInt32(req, "candidate_id", candidate)
	resp := dynamicpb.NewMessage(c.schema.genCandidateResponse)
	if err := c.invoke(ctx, op, methodGenerateCandidate, req, resp); err != nil {
		return CandidateKeys{}, err
	}

	if getInt32(resp, "candidate_id") != candidate {
		return CandidateKeys{}, c.reject(op, "candidate_id not matching in response")
	}
	return CandidateKeys{
		DistrictID:  districtID,
		CandidateID: candidateID,
		Output:      getString(resp, "test_output"),
	}, nil
}

// ComputeVote spends the voter's voting currency on the candidate. With
// IsVoting false the signer only reports whether the voter has voted.
func (c *Client) ComputeVote(ctx context.Context, in VoteRequest) (VoteReceipt, error) {
	const op = "compute_vote"
	district, err := toInt32(op, "district_id", in.DistrictID)
	if err != nil {
		return VoteReceipt{}, err
	}
	candidate, err := toInt32(op, "candidate_id", in.CandidateID)
	if err != nil {
		return VoteReceipt{}, err
	}
	voter, err := toInt32(op, "voter_id", in.VoterID)
	if err != nil {
		return VoteReceipt{}, err
	}

	req := dynamicpb.NewMessage(c.schema.voteRequest)
	setInt32(req, "district_id", district)
	setInt32(req, "candidate_id", candidate)
	setInt32(req, "voter_id", voter)
	setBool(req, "is_voting", in.IsVoting)
	resp := dynamicpb.NewMessage(c.schema.voteResponse)
	if err := c.invoke(ctx, op, methodComputeVote, req, resp); err != nil {
		return VoteReceipt{}, err
	}

	if getInt32(resp, "candidate_id") != candidate || getInt32(resp, "voter_id") != voter {
		return VoteReceipt{}, c.reject(op, "candidate_id, voter_id not matching in response")
	}
	keyImage := getString(resp, "key_image")
	if in.IsVoting && keyImage == "" {
		return VoteReceipt{}, c.reject(op, "key image missing in response")
	}
	return VoteReceipt{
		DistrictID:  in.DistrictID,
		CandidateID: in.CandidateID,
		VoterID:     in.VoterID,
		KeyImage:    keyImage,
		HasVoted:    getBool(resp, "has_voted"),
		Output:      getString(resp, "test_output"),
	}, nil
}

func (c *Client) CalculateTotalVote(ctx context.Context, districtIDs []int64) (TotalVote, error) {
	const op = "calculate_total_vote"
	ids, err := toInt32s(op, districtIDs)
	if err != nil {
		return TotalVote{}, err
	}

	req := dynamicpb.NewMessage(c.schema.totalVoteRequest)
	appendInt32s(req, "district_ids", ids)
	resp := dynamicpb.NewMessage(c.schema.totalVoteResponse)
	if err := c.invoke(ctx, op, methodCalculateTotalVote, req, resp); err != nil {
		return TotalVote{}, err
	}

	echoed := getInt32s(resp, "district_ids")
	if !sameIDs(ids, echoed) {
		return TotalVote{}, c.reject(op, "district_ids not matching in response")
	}
	return TotalVote{
		DistrictIDs: toInt64s(echoed),
		Output:      getString(resp, "test_output"),
	}, nil
}

func (c *Client) FilterNonVoters(ctx context.Context, districtIDs []int64) (NonVoters, error) {
	const op = "filter_non_voter"
	ids, err := toInt32s(op, districtIDs)
	if err != nil {
		return NonVoters{}, err
	}

	req := dynamicpb.NewMessage(c.schema.filterRequest)
	appendInt32s(req, "district_ids", ids)
	resp := dynamicpb.NewMessage(c.schema.filterResponse)
	if err := c.invoke(ctx, op, methodFilterNonVoter, req, resp); err != nil {
		return NonVoters{}, err
	}

	echoed := getInt32s(resp, "district_ids")
	if !sameIDs(ids, echoed) {
		return NonVoters{}, c.reject(op, "district_ids not matching in response")
	}
	return NonVoters{
		DistrictIDs: toInt64s(echoed),
		VoterIDs:    toInt64s(getInt32s(resp, "voter_ids")),
	}, nil
}

func (c *Client) invoke(ctx context.Context, op string, method string, req *dynamicpb.Message, resp *dynamicpb.Message) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, span := c.tracer.Start(ctx, "ringct."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	defer span.End()

	started := time.Now()
	err := classify(op, c.conn.Invoke(ctx, fullMethod(method), req, resp))
	elapsed := time.Since(started)

	outcome := outcomeOf(err)
	if c.observer != nil {
		c.observer.ObserveSignerCall(op, outcome, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, outcome)
		level := slog.LevelError
		if errors.Is(err, ErrDoubleVoting) {
			level = slog.LevelWarn
		}
		c.logger.Log(ctx, level, "ringct call failed",
			"event", "ringct_call_failed",
			"module", "internal/platform/ringct",
			"layer", "platform",
			"op", op,
			"outcome", outcome,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err.Error(),
		)
		return err
	}
	c.logger.Debug("ringct call completed",
		"event", "ringct_call_completed",
		"module", "internal/platform/ringct",
		"layer", "platform",
		"op", op,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (c *Client) reject(op string, detail string) error {
	err := mismatch(op, detail)
	if c.observer != nil {
		c.observer.ObserveSignerCall(op, "mismatch", 0)
	}
	c.logger.Error("ringct response mismatch",
		"event", "ringct_response_mismatch",
		"module", "internal/platform/ringct",
		"layer", "platform",
		"op", op,
		"detail", detail,
	)
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDoubleVoting):
		return "double_voting"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "rejected"
	}
}

func toInt32(op string, name string, value int64) (int32, error) {
	if value <= 0 || value > math.MaxInt32 {
		return 0, invalidInput(op, name+" must be a positive 32-bit integer")
	}
	return int32(value), nil
}

func toInt32s(op string, values []int64) ([]int32, error) {
	if len(values) == 0 {
		return nil, invalidInput(op, "district_ids cannot be empty")
	}
	items := make([]int32, 0, len(values))
	for _, value := range values {
		item, err := toInt32(op, "district_id", value)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func toInt64s(values []int32) []int64 {
	items := make([]int64, 0, len(values))
	for _, value := range values {
		items = append(items, int64(value))
	}
	return items
}

func sameIDs(requested []int32, echoed []int32) bool {
	if len(requested) != len(echoed) {
		return false
	}
	known := make(map[int32]struct{}, len(requested))
	for _, id := range requested {
		known[id] = struct{}{}
	}
	for _, id := range echoed {
		if _, ok := known[id]; !ok {
			return false
		}
	}
	return true
}
