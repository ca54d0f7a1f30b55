package atlas

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AtlasToken authenticates every request against the Atlas Cloud. The vendor
// API carries credentials in the request body, not in headers.
type AtlasToken struct {
	AppID     string `json:"appId"`
	SecretKey string `json:"secretKey"`
}

// AtlasRequest is the vendor request envelope.
type AtlasRequest struct {
	Token *AtlasToken    `json:"token"`
	Data  map[string]any `json:"data,omitempty"`
}

// AtlasResponse is the vendor response envelope. Status 0 means success.
type AtlasResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// Survey is one measurement session synced from an Atlas laser device.
type Survey struct {
	ID         string       `json:"surveyId"`
	Label      string       `json:"label"`
	Address    string       `json:"address"`
	CapturedAt time.Time    `json:"capturedAt"`
	Rooms      []SurveyRoom `json:"rooms"`
}

// SurveyRoom is a room as the device records it: raw laser dimensions plus
// what the surveyor tapped in on the handset.
type SurveyRoom struct {
	Name          string  `json:"name"`
	RoomType      string  `json:"roomType"`
	Length        float64 `json:"lengthM"`
	Width         float64 `json:"widthM"`
	Height        float64 `json:"heightM"`
	WindowArea    float64 `json:"windowAreaM2"`
	ExteriorWalls int     `json:"exteriorWalls"`
	DoorCount     int     `json:"doorCount"`
}

// Client talks to the Atlas Cloud sync API.
type Client struct {
	httpClient *resty.Client
	token      *AtlasToken
	logger     *zap.Logger
}

func NewClient(baseURL, appID, secretKey string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		token:      &AtlasToken{AppID: appID, SecretKey: secretKey},
		logger:     logger,
	}
}

// ListSurveys returns the surveys available on the account, newest first as
// the cloud sends them.
func (c *Client) ListSurveys(ctx context.Context) ([]Survey, error) {
	request := AtlasRequest{Token: c.token}

	var response AtlasResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/surveys/list")
	if err != nil {
		c.logger.Error("Atlas API call failed",
			zap.Error(err),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("failed to call Atlas API: %w", err)
	}
	if response.Status != 0 {
		c.logger.Error("Atlas API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("Atlas API error: %s (status: %d)", response.Msg, response.Status)
	}

	var surveys []Survey
	if err := json.Unmarshal(response.Data, &surveys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal surveys: %w", err)
	}

	c.logger.Info("retrieved surveys from Atlas Cloud", zap.Int("survey_count", len(surveys)))
	return surveys, nil
}

// GetSurvey fetches one survey with its full room list.
func (c *Client) GetSurvey(ctx context.Context, surveyID string) (Survey, error) {
	request := AtlasRequest{
		Token: c.token,
		Data:  map[string]any{"surveyId": surveyID},
	}

	var response AtlasResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/surveys/get")
	if err != nil {
		c.logger.Error("Atlas API call failed",
			zap.Error(err),
			zap.String("survey_id", surveyID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return Survey{}, fmt.Errorf("failed to call Atlas API: %w", err)
	}
	if response.Status != 0 {
		c.logger.Error("Atlas API returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return Survey{}, fmt.Errorf("Atlas API error: %s (status: %d)", response.Msg, response.Status)
	}

	var survey Survey
	if err := json.Unmarshal(response.Data, &survey); err != nil {
		return Survey{}, fmt.Errorf("failed to unmarshal survey: %w", err)
	}
	return survey, nil
}
