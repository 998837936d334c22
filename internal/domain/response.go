package domain

// Outbound response types.
const (
	ResponseUserJoined  = "UserJoined"
	ResponseMessage     = "Message"
	ResponseVideoAction = "VideoAction"
	ResponseUserLeft    = "UserLeft"
)

// Response is the envelope of every frame sent to clients. Data is
// serialized as null for a join without a snapshot.
type Response struct {
	ResponseType string      `json:"response_type"`
	Data         interface{} `json:"data"`
}

type MemberRef struct {
	MemberID string `json:"member_id"`
}

// JoinedResponse is the catch-up frame sent to a joining connection.
func JoinedResponse(snapshot *SyncSnapshot) Response {
	if snapshot == nil {
		return Response{ResponseType: ResponseUserJoined}
	}
	return Response{ResponseType: ResponseUserJoined, Data: snapshot}
}

func MessageResponse(msg *ChatBroadcast) Response {
	return Response{ResponseType: ResponseMessage, Data: msg}
}

func VideoActionResponse(snapshot *SyncSnapshot) Response {
	return Response{ResponseType: ResponseVideoAction, Data: snapshot}
}

func LeftResponse(memberID string) Response {
	return Response{ResponseType: ResponseUserLeft, Data: MemberRef{MemberID: memberID}}
}
