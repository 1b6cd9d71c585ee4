package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrInvalidImageID = ErrorResponse{
		Status:  "error",
		Error:   "invalid_image_id",
		Details: "Image id must be a UUID",
	}

	ErrImageNotFound = ErrorResponse{
		Status:  "error",
		Error:   "image_not_found",
		Details: "Image does not exist",
	}

	ErrImageAlreadyExists = ErrorResponse{
		Status:  "error",
		Error:   "image_already_exists",
		Details: "Image with this uuid already exists",
	}

	ErrInvalidImage = ErrorResponse{
		Status: "error",
		Error:  "invalid_image",
	}

	ErrFileTooLarge = ErrorResponse{
		Status:  "error",
		Error:   "file_too_large",
		Details: "File size exceeds limit",
	}

	ErrStorageUnavailable = ErrorResponse{
		Status:  "error",
		Error:   "storage_unavailable",
		Details: "Image storage is unavailable, retry later",
	}

	ErrBackendFailed = ErrorResponse{
		Status: "error",
		Error:  "backend_failed",
	}

	ErrInternal = ErrorResponse{
		Status:  "error",
		Error:   "internal_error",
		Details: "Internal server error",
	}
)
