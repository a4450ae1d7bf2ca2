// Package crm wraps the external contact ("customer contact") endpoints.
//
// Every method issues exactly one request through the injected
// httpclient.Client and returns its result unmodified. Remote business errors
// arrive as a non-zero errcode in the result; see httpclient.Result.Err.
package crm

import (
	"context"

	"github.com/piccscy/wechat/pkg/httpclient"
)

const (
	pathFollowUserList   = "externalcontact/get_follow_user_list"
	pathList             = "externalcontact/list"
	pathGet              = "externalcontact/get"
	pathRemark           = "externalcontact/remark"
	pathGetCorpTagList   = "externalcontact/get_corp_tag_list"
	pathAddCorpTag       = "externalcontact/add_corp_tag"
	pathEditCorpTag      = "externalcontact/edit_corp_tag"
	pathDelCorpTag       = "externalcontact/del_corp_tag"
	pathMarkTag          = "externalcontact/mark_tag"
	pathGroupChatList    = "externalcontact/groupchat/list"
	pathGroupChatGet     = "externalcontact/groupchat/get"
	pathAddMsgTemplate   = "externalcontact/add_msg_template"
	pathGroupMsgResult   = "externalcontact/get_group_msg_result"
	pathSendWelcomeMsg   = "externalcontact/send_welcome_msg"
	pathUnassignedList   = "externalcontact/get_unassigned_list"
	pathGroupWelcomeAdd  = "externalcontact/group_welcome_template/add"
	pathGroupWelcomeEdit = "externalcontact/group_welcome_template/edit"
	pathGroupWelcomeGet  = "externalcontact/group_welcome_template/get"
	pathGroupWelcomeDel  = "externalcontact/group_welcome_template/del"
)

// Client exposes the external contact endpoints.
type Client struct {
	http httpclient.Client
}

// New returns a Client issuing calls through c.
func New(c httpclient.Client) *Client {
	return &Client{http: c}
}

// GetFollowUserList lists the members that have customer contact enabled.
func (c *Client) GetFollowUserList(ctx context.Context) (httpclient.Result, error) {
	return c.http.Get(ctx, pathFollowUserList, nil)
}

// List returns the external user ids of the customers added by userid.
// External contacts of members without customer contact enabled are not returned.
func (c *Client) List(ctx context.Context, userid string) (httpclient.Result, error) {
	return c.http.Get(ctx, pathList, httpclient.Params{
		"userid": userid,
	})
}

// GetExternalContact returns the customer details for an external user id.
func (c *Client) GetExternalContact(ctx context.Context, externalUserID string) (httpclient.Result, error) {
	return c.http.Get(ctx, pathGet, httpclient.Params{
		"external_userid": externalUserID,
	})
}

// UpdateExternalContactRemark changes the remark userid keeps for a customer.
func (c *Client) UpdateExternalContactRemark(
	ctx context.Context,
	userid string,
	externalUserID string,
	remark string,
	description string,
	remarkCompany string,
	remarkMobiles string,
	remarkPicMediaID string,
) (httpclient.Result, error) {
	return c.http.Get(ctx, pathRemark, httpclient.Params{
		"userid":             userid,
		"external_userid":    externalUserID,
		"remark":             remark,
		"description":        description,
		"remark_company":     remarkCompany,
		"remark_mobiles":     remarkMobiles,
		"remark_pic_mediaid": remarkPicMediaID,
	})
}

// GetCorpTagList returns the corp tag library, optionally restricted to tagIDs.
func (c *Client) GetCorpTagList(ctx context.Context, tagIDs []string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGetCorpTagList, httpclient.Params{
		"tag_id": tagIDs,
	})
}

// AddCorpTag adds tags to a tag group, creating the group when groupID is empty.
// Names are limited to 30 characters; a larger order sorts first.
func (c *Client) AddCorpTag(ctx context.Context, groupID, groupName string, order uint32, tags []TagSpec) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathAddCorpTag, httpclient.Params{
		"group_id":   groupID,
		"group_name": groupName,
		"order":      order,
		"tag":        tags,
	})
}

// EditCorpTag renames or reorders a tag or tag group.
func (c *Client) EditCorpTag(ctx context.Context, tagID, tagName string, order uint32) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathEditCorpTag, httpclient.Params{
		"id":    tagID,
		"name":  tagName,
		"order": order,
	})
}

// DelCorpTag deletes tags, or whole tag groups.
// Both ids are sent as JSON lists, even when a single id is given.
func (c *Client) DelCorpTag(ctx context.Context, tagIDs, groupIDs []string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathDelCorpTag, httpclient.Params{
		"tag_id":   tagIDs,
		"group_id": groupIDs,
	})
}

// MarkTag adds and removes corp tags on a customer of userid.
// addTags and removeTags must not both be empty.
func (c *Client) MarkTag(ctx context.Context, userid, externalUserID string, addTags, removeTags []string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathMarkTag, httpclient.Params{
		"userid":          userid,
		"external_userid": externalUserID,
		"add_tag":         addTags,
		"remove_tag":      removeTags,
	})
}

// GroupChatList pages through customer group chats. limit ranges over 1..1000.
func (c *Client) GroupChatList(ctx context.Context, statusFilter int, ownerFilter *OwnerFilter, offset, limit int) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupChatList, httpclient.Params{
		"status_filter": statusFilter,
		"owner_filter":  ownerFilter,
		"offset":        offset,
		"limit":         limit,
	})
}

// GetGroupChat returns a group chat with its member list.
func (c *Client) GetGroupChat(ctx context.Context, chatID string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupChatGet, httpclient.Params{
		"chat_id": chatID,
	})
}

// AddMsgTemplate creates a bulk message task. Members still have to confirm
// the send on their clients; each customer receives at most four per month.
func (c *Client) AddMsgTemplate(
	ctx context.Context,
	chatType string,
	externalUserIDs []string,
	sender string,
	text *Text,
	image *Image,
	link *Link,
	miniProgram *MiniProgram,
) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathAddMsgTemplate, httpclient.Params{
		"chat_type":       chatType,
		"external_userid": externalUserIDs,
		"sender":          sender,
		"text":            text,
		"image":           image,
		"link":            link,
		"miniprogram":     miniProgram,
	})
}

// GetGroupMsgResult returns the delivery status of a bulk message task.
func (c *Client) GetGroupMsgResult(ctx context.Context, msgID string) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathGroupMsgResult, httpclient.Params{
		"msgid": msgID,
	})
}

// SendWelcomeMsg sends the welcome message for a newly added customer.
// welcomeCode comes from the contact-added event, is valid for 20 seconds and
// can be used once; later calls get errcode 41051.
// text is sent as the object {"content": ...}, not as a bare string.
func (c *Client) SendWelcomeMsg(
	ctx context.Context,
	welcomeCode string,
	text *Text,
	image *Image,
	link *Link,
	miniProgram *MiniProgram,
) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathSendWelcomeMsg, httpclient.Params{
		"welcome_code": welcomeCode,
		"text":         text,
		"image":        image,
		"link":         link,
		"miniprogram":  miniProgram,
	})
}

// GetUnassignedList pages through customers of departed members awaiting reassignment.
func (c *Client) GetUnassignedList(ctx context.Context, pageID, pageSize int) (httpclient.Result, error) {
	return c.http.PostJSON(ctx, pathUnassignedList, httpclient.Params{
		"page_id":   pageID,
		"page_size": pageSize,
	})
}
