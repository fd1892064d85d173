package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// BlueprintResponse — blueprint из API.
type BlueprintResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	WebhookURL  string          `json:"webhook_url,omitempty"`
	NodeCount   int             `json:"node_count"`
	FormCount   int             `json:"form_count"`
	Graph       json.RawMessage `json:"graph,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// FormResponse — форма из API.
type FormResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WalkResponse — результат обхода графа.
type WalkResponse struct {
	NodeID     string         `json:"node_id"`
	Direction  string         `json:"direction"`
	DirectOnly bool           `json:"direct_only"`
	Forms      []FormResponse `json:"forms"`
}

// CandidateResponse — форма-источник для prefill.
type CandidateResponse struct {
	NodeID   string       `json:"node_id"`
	NodeName string       `json:"node_name"`
	Form     FormResponse `json:"form"`
	Direct   bool         `json:"direct"`
}

// PrefillConfig — привязка поля к источнику.
type PrefillConfig struct {
	SourceFormID   string `json:"sourceFormId,omitempty"`
	SourceFieldID  string `json:"sourceFieldId,omitempty"`
	GlobalDataPath string `json:"globalDataPath,omitempty"`
}

// MappingEntry — одна привязка с подписью.
type MappingEntry struct {
	NodeID      string        `json:"node_id"`
	FieldID     string        `json:"field_id"`
	Config      PrefillConfig `json:"config"`
	Description string        `json:"description"`
}

// MappingsResponse — таблица привязок blueprint.
type MappingsResponse struct {
	BlueprintID string         `json:"blueprint_id"`
	Entries     []MappingEntry `json:"entries"`
}

// CompletenessResponse — полнота привязок одного узла.
type CompletenessResponse struct {
	NodeID   string   `json:"node_id"`
	FormID   string   `json:"form_id"`
	FormName string   `json:"form_name"`
	Required []string `json:"required"`
	Missing  []string `json:"missing"`
	Complete bool     `json:"complete"`
}

// JourneyResponse — journey из API.
type JourneyResponse struct {
	ID          string   `json:"id"`
	BlueprintID string   `json:"blueprint_id"`
	Status      string   `json:"status"`
	Submitted   []string `json:"submitted"`
	Ready       []string `json:"ready"`
	CreatedAt   string   `json:"created_at"`
	FinishedAt  string   `json:"finished_at,omitempty"`
}

// SubmissionResponse — отправка формы из API.
type SubmissionResponse struct {
	JourneyID   string         `json:"journey_id"`
	NodeID      string         `json:"node_id"`
	FormID      string         `json:"form_id"`
	Data        map[string]any `json:"data"`
	SubmittedAt string         `json:"submitted_at"`
}

// PrefillResponse — вычисленное значение из API.
type PrefillResponse struct {
	NodeID     string `json:"node_id"`
	FieldID    string `json:"field_id"`
	Value      any    `json:"value"`
	Source     string `json:"source"`
	ComputedAt string `json:"computed_at"`
}

// --- Request types ---

// CreateBlueprintRequest — создание blueprint.
type CreateBlueprintRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	WebhookURL  string          `json:"webhook_url,omitempty"`
	Graph       json.RawMessage `json:"graph"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Journey API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Blueprints ---

// ListBlueprints возвращает все blueprints.
func (c *Client) ListBlueprints() ([]BlueprintResponse, error) {
	var blueprints []BlueprintResponse
	err := c.list("/api/v1/blueprints", nil, &blueprints)
	return blueprints, err
}

// GetBlueprint возвращает blueprint по ID.
func (c *Client) GetBlueprint(id string) (*BlueprintResponse, error) {
	var bp BlueprintResponse
	err := c.get(blueprintPath(id), &bp)
	return &bp, err
}

// CreateBlueprint создаёт blueprint.
func (c *Client) CreateBlueprint(req CreateBlueprintRequest) (*BlueprintResponse, error) {
	var bp BlueprintResponse
	err := c.post("/api/v1/blueprints", req, &bp)
	return &bp, err
}

// SeedBlueprint создаёт встроенный blueprint "Onboard Customer 0".
func (c *Client) SeedBlueprint() (*BlueprintResponse, error) {
	var bp BlueprintResponse
	err := c.post("/api/v1/blueprints/seed", nil, &bp)
	return &bp, err
}

// DeleteBlueprint удаляет blueprint.
func (c *Client) DeleteBlueprint(id string) error {
	return c.delete(blueprintPath(id))
}

// --- Graph ---

// Walk возвращает формы выше (upstream) или ниже (downstream) узла.
func (c *Client) Walk(blueprintID, node, direction string, directOnly bool) (*WalkResponse, error) {
	params := url.Values{}
	params.Set("direct", strconv.FormatBool(directOnly))

	var walk WalkResponse
	err := c.get(nodePath(blueprintID, node)+"/"+direction+"?"+params.Encode(), &walk)
	return &walk, err
}

// Candidates возвращает формы-источники для полей узла.
func (c *Client) Candidates(blueprintID, node string) ([]CandidateResponse, error) {
	var candidates []CandidateResponse
	err := c.list(nodePath(blueprintID, node)+"/candidates", nil, &candidates)
	return candidates, err
}

// --- Mappings ---

// GetMappings возвращает таблицу привязок.
func (c *Client) GetMappings(blueprintID string) (*MappingsResponse, error) {
	var mappings MappingsResponse
	err := c.get(blueprintPath(blueprintID)+"/mappings", &mappings)
	return &mappings, err
}

// SetMapping задаёт привязку поля.
func (c *Client) SetMapping(blueprintID, node, field string, cfg PrefillConfig) (*MappingsResponse, error) {
	var mappings MappingsResponse
	err := c.put(mappingPath(blueprintID, node, field), cfg, &mappings)
	return &mappings, err
}

// RemoveMapping удаляет привязку поля.
func (c *Client) RemoveMapping(blueprintID, node, field string) (*MappingsResponse, error) {
	var mappings MappingsResponse
	err := c.doData(http.MethodDelete, mappingPath(blueprintID, node, field), nil, &mappings)
	return &mappings, err
}

// Completeness проверяет полноту привязок.
func (c *Client) Completeness(blueprintID string) ([]CompletenessResponse, error) {
	var result []CompletenessResponse
	err := c.list(blueprintPath(blueprintID)+"/completeness", nil, &result)
	return result, err
}

// --- Journeys ---

// StartJourney запускает journey по blueprint.
func (c *Client) StartJourney(blueprintID string) (*JourneyResponse, error) {
	var journey JourneyResponse
	err := c.post(blueprintPath(blueprintID)+"/journeys", nil, &journey)
	return &journey, err
}

// GetJourney возвращает journey по ID.
func (c *Client) GetJourney(id string) (*JourneyResponse, error) {
	var journey JourneyResponse
	err := c.get(journeyPath(id), &journey)
	return &journey, err
}

// Submit отправляет форму узла.
func (c *Client) Submit(journeyID, node string, data map[string]any) (*SubmissionResponse, error) {
	body := map[string]any{"node_id": node, "data": data}
	var sub SubmissionResponse
	err := c.post(journeyPath(journeyID)+"/submissions", body, &sub)
	return &sub, err
}

// ListPrefills возвращает вычисленные значения journey.
func (c *Client) ListPrefills(journeyID string) ([]PrefillResponse, error) {
	var prefills []PrefillResponse
	err := c.list(journeyPath(journeyID)+"/prefills", nil, &prefills)
	return prefills, err
}

// CancelJourney отменяет journey.
func (c *Client) CancelJourney(journeyID string) error {
	return c.post(journeyPath(journeyID)+"/cancel", nil, nil)
}

// --- Paths ---

func blueprintPath(id string) string {
	return "/api/v1/blueprints/" + url.PathEscape(id)
}

func nodePath(blueprintID, node string) string {
	return blueprintPath(blueprintID) + "/nodes/" + url.PathEscape(node)
}

func mappingPath(blueprintID, node, field string) string {
	return blueprintPath(blueprintID) + "/mappings/" + url.PathEscape(node) + "/" + url.PathEscape(field)
}

func journeyPath(id string) string {
	return "/api/v1/journeys/" + url.PathEscape(id)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
