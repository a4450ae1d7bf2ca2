package crm

// Text is a plain text message body. Content is limited to 4000 bytes.
type Text struct {
	Content string `json:"content"`
}

// Image references an uploaded picture. When both are set MediaID wins.
type Image struct {
	MediaID string `json:"media_id,omitempty"`
	PicURL  string `json:"pic_url,omitempty"`
}

// Link is an article card.
type Link struct {
	Title  string `json:"title"`
	PicURL string `json:"picurl,omitempty"`
	Desc   string `json:"desc,omitempty"`
	URL    string `json:"url"`
}

// MiniProgram is a mini-program card. AppID must belong to an app linked to the corp.
type MiniProgram struct {
	Title      string `json:"title"`
	PicMediaID string `json:"pic_media_id"`
	AppID      string `json:"appid"`
	Page       string `json:"page"`
}

// TagSpec describes a tag created under a tag group.
type TagSpec struct {
	Name  string `json:"name"`
	Order uint32 `json:"order"`
}

// OwnerFilter restricts group chat listing to the given owners.
type OwnerFilter struct {
	UserIDList  []string `json:"userid_list,omitempty"`
	PartyIDList []int    `json:"partyid_list,omitempty"`
}

// Chat types accepted by AddMsgTemplate.
const (
	ChatTypeSingle = "single"
	ChatTypeGroup  = "group"
)

// Group chat status filters accepted by GroupChatList.
const (
	StatusFilterAll = iota
	StatusFilterResignedPending
	StatusFilterResignedInProgress
	StatusFilterResignedDone
)
