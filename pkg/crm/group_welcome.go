package crm

import (
	"context"

	"github.com/piccscy/wechat/pkg/httpclient"
)

// AddGroupWelcomeTemplate stores a group chat welcome message and returns its template_id.
func (c *Client) AddGroupWelcomeTemplate(ctx context.Context, text *Text, image *Image, link *Link, miniProgram *MiniProgram) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupWelcomeAdd, httpclient.Params{
		"text":        text,
		"image":       image,
		"link":        link,
		"miniprogram": miniProgram,
	})
}

// EditGroupWelcomeTemplate replaces the content of a stored template.
func (c *Client) EditGroupWelcomeTemplate(ctx context.Context, templateID string, text *Text, image *Image, link *Link, miniProgram *MiniProgram) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupWelcomeEdit, httpclient.Params{
		"template_id": templateID,
		"text":        text,
		"image":       image,
		"link":        link,
		"miniprogram": miniProgram,
	})
}

func (c *Client) GetGroupWelcomeTemplate(ctx context.Context, templateID string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupWelcomeGet, httpclient.Params{
		"template_id": templateID,
	})
}

func (c *Client) DelGroupWelcomeTemplate(ctx context.Context, templateID string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupWelcomeDel, httpclient.Params{
		"template_id": templateID,
	})
}
