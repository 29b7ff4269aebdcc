package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/chat"
	"github.com/GrupoTcc462/StudyMate/core/user"
	"github.com/GrupoTcc462/StudyMate/storage/files"
)

type chatApi struct {
	opts *Options
	svc  *chat.Service
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := chatApi{opts: opts, svc: opts.ChatSvc}

	cg := g.Group("/chats", jwt)
	cg.GET("", api.list)
	cg.POST("/open", api.open)
	cg.GET("/:id/messages", api.conversation)
	cg.POST("/:id/messages", api.post)
	cg.GET("/:id/draft", api.getDraft)
	cg.PUT("/:id/draft", api.saveDraft)
	cg.DELETE("/:id/draft", api.clearDraft)

	mg := g.Group("/messages", jwt)
	mg.POST("/delete", api.deleteMessages)
	mg.POST("/:id/read", api.markRead)
	mg.GET("/:id/attachment", api.downloadAttachment)
}

// Handlers

func (api *chatApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	unreadOnly := ctx.QueryParam("unread") == "true"
	summaries, err := api.svc.List(ctx.Request().Context(), claims.Subject, unreadOnly)
	if err != nil {
		return errors.Wrap(err, "listing chats")
	}
	if summaries == nil {
		summaries = []chat.Summary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *chatApi) open(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	var data OpenChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenChatRequest")
	}
	if data.UserID == "" {
		return core.NewFieldError("user_id", "this field is required")
	}

	if _, err := api.opts.UserSvc.GetByID(ctx.Request().Context(), data.UserID); err != nil {
		return mapChatErr(err)
	}
	c, err := api.svc.Open(ctx.Request().Context(), claims.Subject, data.UserID)
	if err != nil {
		return mapChatErr(errors.Wrap(err, "opening chat"))
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *chatApi) conversation(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	msgs, err := api.svc.Conversation(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapChatErr(errors.Wrap(err, "loading conversation"))
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) post(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	nm := chat.NewMessage{Body: ctx.FormValue("body")}

	// optional attachment
	if fh, err := ctx.FormFile("file"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening upload")
		}
		defer func() { _ = src.Close() }()

		stored, err := api.opts.Files.Store(files.CategoryChat, fh.Filename, fh.Size, src)
		if err != nil {
			return mapFileErr(errors.Wrap(err, "storing attachment"), "file")
		}
		nm.Attachment = stored
		nm.AttachmentName = fh.Filename
	}

	if err := nm.Validate(api.opts.Validate); err != nil {
		return err
	}

	msg, err := api.svc.Post(ctx.Request().Context(), ctx.Param("id"), claims.Subject, nm)
	if err != nil {
		return mapChatErr(errors.Wrap(err, "posting message"))
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	if err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return mapChatErr(errors.Wrap(err, "marking message read"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (api *chatApi) deleteMessages(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	var data DeleteMessagesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteMessagesRequest")
	}

	n, err := api.svc.DeleteMessages(ctx.Request().Context(), claims.Subject, data.IDs...)
	if err != nil {
		return mapChatErr(errors.Wrap(err, "deleting messages"))
	}
	return ctx.JSON(http.StatusOK, DeleteMessagesResponse{Success: true, Deleted: n})
}

func (api *chatApi) downloadAttachment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	msg, err := api.svc.GetAttachment(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return mapChatErr(errors.Wrap(err, "getting attachment"))
	}

	path, err := api.opts.Files.Path(files.CategoryChat, msg.Attachment)
	if err != nil {
		return errHttpNotFound
	}
	return ctx.Attachment(path, msg.AttachmentName)
}

// Drafts

func (api *chatApi) saveDraft(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	var data DraftRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftRequest")
	}

	// only participants may keep a draft on the chat
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return mapChatErr(err)
	}
	if err := api.svc.SaveDraft(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Text); err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (api *chatApi) getDraft(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return mapChatErr(err)
	}
	text, err := api.svc.GetDraft(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting draft")
	}
	return ctx.JSON(http.StatusOK, DraftResponse{Text: text})
}

func (api *chatApi) clearDraft(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting claims")
	}

	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return mapChatErr(err)
	}
	if err := api.svc.ClearDraft(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return errors.Wrap(err, "clearing draft")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func mapChatErr(err error) error {
	switch errors.Cause(err) {
	case chat.ErrNotFound, user.ErrNotFound, files.ErrNotFound:
		return errHttpNotFound
	case chat.ErrNotParticipant:
		return errHttpForbidden
	case nil:
		return nil
	}
	return err
}

type (
	OpenChatRequest struct {
		UserID string `json:"user_id"`
	}

	DeleteMessagesRequest struct {
		IDs []string `json:"ids"`
	}

	DeleteMessagesResponse struct {
		Success bool `json:"success"`
		Deleted int  `json:"deleted"`
	}

	DraftRequest struct {
		Text string `json:"text"`
	}

	DraftResponse struct {
		Text string `json:"text"`
	}
)
