package domain

// CreateBoardRequest is the body of POST /boards.
type CreateBoardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Background  string `json:"background,omitempty"`
}

// UpdateBoardRequest is the body of PUT /boards/{id}.
// Nil fields are left unchanged.
type UpdateBoardRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Background  *string `json:"background,omitempty"`
}

// CreateListRequest is the body of POST /lists.
// A nil Position appends the list.
type CreateListRequest struct {
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position *int   `json:"position,omitempty"`
}

// UpdateListRequest is the body of PUT /lists/{id}.
type UpdateListRequest struct {
	Title string `json:"title"`
}

// ReorderListsRequest is the body of PUT /lists/reorder.
type ReorderListsRequest struct {
	Lists []ListPosition `json:"lists"`
}

// CreateCardRequest is the body of POST /cards.
// A nil Position appends the card.
type CreateCardRequest struct {
	ListID      string `json:"listId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Position    *int   `json:"position,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
