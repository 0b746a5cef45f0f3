package battlenet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobmcallan/armory/internal/models"
)

// characterURL builds /profile/wow/character/{realm}/{name}[/{suffix}]
func (c *Client) characterURL(character models.CharacterIdentity, region, suffix string) string {
	u := fmt.Sprintf("%s/profile/wow/character/%s/%s",
		c.baseURL(region),
		url.PathEscape(models.RealmSlug(character.Realm)),
		url.PathEscape(strings.ToLower(character.Name)),
	)
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (c *Client) characterDocument(ctx context.Context, character models.CharacterIdentity, region, suffix, endpoint string, result interface{}) error {
	return c.Request(ctx, http.MethodGet, c.characterURL(character, region, suffix), RequestOptions{
		Namespace: models.NamespaceFor(character.Namespace, region),
		Endpoint:  endpoint,
	}, result)
}

// CharacterStatus fetches the profile status. A 404 is returned as
// *UpstreamError; callers treat it as an invalid character.
func (c *Client) CharacterStatus(ctx context.Context, character models.CharacterIdentity, region string) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.characterDocument(ctx, character, region, "status", "character_status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CharacterMedia fetches the rendered character assets
func (c *Client) CharacterMedia(ctx context.Context, character models.CharacterIdentity, region string) (*models.MediaResponse, error) {
	var resp models.MediaResponse
	if err := c.characterDocument(ctx, character, region, "character-media", "character_media", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CharacterEquipment fetches the equipped items
func (c *Client) CharacterEquipment(ctx context.Context, character models.CharacterIdentity, region string) (*models.EquipmentResponse, error) {
	var resp models.EquipmentResponse
	if err := c.characterDocument(ctx, character, region, "equipment", "character_equipment", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CharacterSummary fetches the profile summary at the character root
func (c *Client) CharacterSummary(ctx context.Context, character models.CharacterIdentity, region string) (*models.SummaryResponse, error) {
	var resp models.SummaryResponse
	if err := c.characterDocument(ctx, character, region, "", "character_summary", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CharacterSpecializations fetches talent loadouts (retail shape)
func (c *Client) CharacterSpecializations(ctx context.Context, character models.CharacterIdentity, region string) (*models.SpecializationsResponse, error) {
	var resp models.SpecializationsResponse
	if err := c.characterDocument(ctx, character, region, "specializations", "character_specializations", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Media follows a media `key.href`. The href already carries its namespace
// as a query parameter.
func (c *Client) Media(ctx context.Context, href string) (*models.MediaResponse, error) {
	var resp models.MediaResponse
	if err := c.Request(ctx, http.MethodGet, href, RequestOptions{Endpoint: "media"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AccountCharacters lists every character on the account that owns userToken
func (c *Client) AccountCharacters(ctx context.Context, region, namespace, userToken string) (*models.AccountProfileResponse, error) {
	if userToken == "" {
		return nil, fmt.Errorf("account characters: user token is required")
	}
	var resp models.AccountProfileResponse
	err := c.Request(ctx, http.MethodGet, c.baseURL(region)+"/profile/user/wow", RequestOptions{
		Namespace: models.NamespaceFor(namespace, region),
		Token:     userToken,
		Endpoint:  "account_profile",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
