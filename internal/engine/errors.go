package engine

import "errors"

var (
	// ErrTargetMissing: в документе нет корня захвата. Реконструкция не
	// выполняется.
	ErrTargetMissing = errors.New("capture target missing")
	// ErrRasterizerFailure: основной захват упал или не вернул пикселей.
	// Исправляется реконструкцией и сам по себе не сообщается.
	ErrRasterizerFailure = errors.New("rasterizer failure")
	// ErrExportUnavailable: экспорт невозможен, реконструкция тоже не удалась.
	ErrExportUnavailable = errors.New("export unavailable")
	// ErrEncoding: итоговый буфер не удалось закодировать или записать.
	ErrEncoding = errors.New("encoding error")
)
