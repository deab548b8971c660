package handlers

import (
	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// Handler converts one raw message into a typed Variant. Implementations
// must never panic on malformed content; Factory.Dispatch recovers anyway
// and degrades to base fields, but a well-behaved handler should not rely
// on that safety net.
type Handler interface {
	CanHandle(messageType string) bool
	Extract(msg skypeetl.RawMessage) Variant
}

// Factory owns an ordered list of handlers and dispatches by first match,
// falling back to UnknownHandler.
type Factory struct {
	handlers []Handler
}

// NewFactory returns a Factory pre-loaded with the built-in representative
// handlers plus the catalogue of additional known message types, in the
// order most-specific-first so e.g. Media variants are tried before the
// generic RichText handler.
func NewFactory() *Factory {
	f := &Factory{}
	f.handlers = append(f.handlers,
		mediaHandler{},
		pollHandler{},
		callHandler{},
		locationHandler{},
		contactsHandler{},
		scheduledCallInviteHandler{},
		threadActivityHandler{},
		textHandler{},
	)
	f.handlers = append(f.handlers, catalogHandlers()...)
	return f
}

// Register appends a handler to the end of the dispatch order, after the
// built-ins and catalogue but still before UnknownHandler.
func (f *Factory) Register(h Handler) {
	f.handlers = append(f.handlers, h)
}

// Dispatch returns the structured-data Variant for msg, trying each
// registered handler in order and falling back to UnknownHandler. If a
// handler panics on malformed content, Dispatch recovers, returns the base
// fields only, and reports a non-nil error the caller should log as a
// non-fatal content error.
func (f *Factory) Dispatch(msg skypeetl.RawMessage) (v Variant, err error) {
	for _, h := range f.handlers {
		if !h.CanHandle(msg.MessageType) {
			continue
		}
		v, err = f.safeExtract(h, msg)
		return v, err
	}
	return unknownHandler{}.Extract(msg), nil
}

func (f *Factory) safeExtract(h Handler, msg skypeetl.RawMessage) (v Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = unknownHandler{}.Extract(msg)
			err = &handlerPanicError{messageType: msg.MessageType, recovered: r}
		}
	}()
	return h.Extract(msg), nil
}

type handlerPanicError struct {
	messageType string
	recovered   any
}

func (e *handlerPanicError) Error() string {
	return "handler panicked on message type " + e.messageType
}

func baseFields(msg skypeetl.RawMessage, kind string) Variant {
	return Variant{
		Kind:        kind,
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		MessageType: msg.MessageType,
		IsEdited:    msg.IsEdited,
	}
}

// unknownHandler is the terminal handler: it always matches and produces
// only the base fields.
type unknownHandler struct{}

func (unknownHandler) CanHandle(string) bool { return true }

func (unknownHandler) Extract(msg skypeetl.RawMessage) Variant {
	return baseFields(msg, "unknown")
}
