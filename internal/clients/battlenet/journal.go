package battlenet

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bobmcallan/armory/internal/models"
)

func (c *Client) staticDocument(ctx context.Context, region, path, endpoint string, result interface{}) error {
	return c.Request(ctx, http.MethodGet, c.baseURL(region)+path, RequestOptions{
		Namespace: models.StaticNamespaceFor(models.NamespaceRetail, region),
		Endpoint:  endpoint,
	}, result)
}

// JournalInstanceIndex lists all journal instances
func (c *Client) JournalInstanceIndex(ctx context.Context, region string) (*models.JournalInstanceIndex, error) {
	var resp models.JournalInstanceIndex
	if err := c.staticDocument(ctx, region, "/data/wow/journal-instance/index", "journal_instance_index", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JournalInstance fetches one journal instance
func (c *Client) JournalInstance(ctx context.Context, region string, id int64) (*models.JournalInstanceResponse, error) {
	var resp models.JournalInstanceResponse
	if err := c.staticDocument(ctx, region, fmt.Sprintf("/data/wow/journal-instance/%d", id), "journal_instance", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JournalInstanceMedia fetches the tile artwork of a journal instance
func (c *Client) JournalInstanceMedia(ctx context.Context, region string, id int64) (*models.MediaResponse, error) {
	var resp models.MediaResponse
	if err := c.staticDocument(ctx, region, fmt.Sprintf("/data/wow/media/journal-instance/%d", id), "journal_instance_media", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
