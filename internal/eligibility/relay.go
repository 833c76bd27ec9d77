package eligibility

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wildflowerhealth/wfh-mock-sydney/internal/core"
)

// Record is the operator-supplied mock eligibility submission.
type Record struct {
	ProxyID     string `json:"proxyId"`
	HCID        string `json:"hcid"`
	Email       string `json:"email"`
	DOB         string `json:"dob"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Gender      string `json:"gender"`
	SubRelation string `json:"subRelation"`
	ZipCode     string `json:"zipCode"`

	BrandCd             string `json:"brandCd"`
	GroupID             string `json:"groupId"`
	UnderwritingStateCd string `json:"underwritingStateCd"`
	FundingTypeCd       string `json:"fundingTypeCd"`
	StateCode           string `json:"stateCode"`
	CvrgStartDt         string `json:"cvrgStartDt"`
	CvrgEndDt           string `json:"cvrgEndDt"`
	ProgramID           string `json:"programId"`
	ProgramNm           string `json:"programNm"`

	TargetEnvironment core.Environment `json:"targetEnvironment"`
}

// storeRecord is the wire shape the eligibility store expects: dates
// canonicalized and the contract fields nested.
type storeRecord struct {
	ProxyID     string          `json:"proxyId"`
	HCID        string          `json:"hcid"`
	Email       string          `json:"email"`
	DOB         string          `json:"dob"`
	FirstNm     string          `json:"firstNm"`
	LastNm      string          `json:"lastNm"`
	Gender      string          `json:"gender"`
	SubRelation string          `json:"subRelation"`
	ZipCd       string          `json:"zipCd"`
	Contract    []storeContract `json:"contract"`
}

type storeContract struct {
	BrandCd             string `json:"brandCd"`
	GroupID             string `json:"groupId"`
	UnderwritingStateCd string `json:"underwritingStateCd"`
	FundingTypeCd       string `json:"fundingTypeCd"`
	State               string `json:"state"`
	CvrgStartDt         string `json:"cvrgStartDt"`
	CvrgEndDt           string `json:"cvrgEndDt"`
	ProgramID           string `json:"programId"`
	ProgramIDNm         string `json:"programIdNm"`
}

// Result is always delivered with HTTP 200; outcome lives in the body
// so the calling form never special-cases transport failures.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Relay forwards mock eligibility records to the target environment's
// store. One outbound call per submission, no retry.
type Relay struct {
	environments map[core.Environment]core.SAMLEnvironment
	httpClient   *http.Client
}

// NewRelay creates a relay over the environment table. A nil client
// gets a default with a 10 second timeout.
func NewRelay(environments map[core.Environment]core.SAMLEnvironment, httpClient *http.Client) *Relay {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Relay{environments: environments, httpClient: httpClient}
}

// RegisterRoutes mounts the relay endpoint.
func (rl *Relay) RegisterRoutes(r chi.Router) {
	r.Post("/mock-eligibility", rl.handleSubmit)
}

func (rl *Relay) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var record Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		core.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	core.WriteJSON(w, http.StatusOK, rl.Submit(r.Context(), record))
}

// Submit reshapes and forwards the record. Missing environment
// configuration and upstream failures are reported in the Result, not
// raised.
func (rl *Relay) Submit(ctx context.Context, record Record) Result {
	env, ok := rl.environments[record.TargetEnvironment]
	if !ok || env.MockEligibility == "" || env.APIKey == "" {
		return Result{
			Success: false,
			Message: fmt.Sprintf("Mock Eligibility not supported for this ENV: %s", record.TargetEnvironment),
		}
	}

	payload := storeRecord{
		ProxyID:     record.ProxyID,
		HCID:        record.HCID,
		Email:       record.Email,
		DOB:         FormatDate(record.DOB, "-"),
		FirstNm:     record.FirstName,
		LastNm:      record.LastName,
		Gender:      record.Gender,
		SubRelation: record.SubRelation,
		ZipCd:       record.ZipCode,
		Contract: []storeContract{{
			BrandCd:             record.BrandCd,
			GroupID:             record.GroupID,
			UnderwritingStateCd: record.UnderwritingStateCd,
			FundingTypeCd:       record.FundingTypeCd,
			State:               record.StateCode,
			CvrgStartDt:         FormatDate(record.CvrgStartDt, ""),
			CvrgEndDt:           FormatDate(record.CvrgEndDt, ""),
			ProgramID:           record.ProgramID,
			ProgramIDNm:         record.ProgramNm,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.MockEligibility, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", env.APIKey)

	resp, err := rl.httpClient.Do(req)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return Result{Success: true, Message: "Mock Response was saved"}
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := fmt.Sprintf("Status: %d.", resp.StatusCode)
	if len(detail) > 0 {
		message = fmt.Sprintf("%s Msg: %s", message, string(detail))
	}
	return Result{Success: false, Message: message}
}

// FormatDate converts MM/DD/YYYY to YYYY<delim>MM<delim>DD, padding
// month and day. Inputs without exactly two '/' separators are
// returned unchanged.
func FormatDate(dateStr, delimiter string) string {
	parts := strings.Split(dateStr, "/")
	if len(parts) != 3 {
		return dateStr
	}
	month, day, year := parts[0], parts[1], parts[2]
	return year + delimiter + pad2(month) + delimiter + pad2(day)
}

func pad2(s string) string {
	for len(s) < 2 {
		s = "0" + s
	}
	return s
}
