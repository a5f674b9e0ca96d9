package pferrors

// Convenience constructors for common error patterns

// Config errors

func ConfigNotFound(path string) *Error {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *Error {
	return New(CategoryConfig, SeverityFatal, "invalid configuration").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Content errors

func ContentError(path, reason string) *Error {
	return New(CategoryContent, SeverityFatal, reason).
		WithContext("path", path)
}

func ContentWrap(path string, cause error) *Error {
	return Wrap(cause, CategoryContent, SeverityFatal, "failed to load content file").
		WithContext("path", path)
}

func DuplicateSlug(slug, path, otherPath string) *Error {
	return New(CategoryContent, SeverityFatal, "duplicate slug").
		WithContext("slug", slug).
		WithContext("path", path).
		WithContext("other_path", otherPath)
}

// Markdown errors

func ParseError(path, reason string) *Error {
	return New(CategoryParse, SeverityFatal, reason).
		WithContext("path", path)
}

// Template errors

func TemplateNotFound(id string) *Error {
	return New(CategoryTemplate, SeverityFatal, "template not found").
		WithContext("template", id)
}

func MissingVariable(id, key string) *Error {
	return New(CategoryTemplate, SeverityFatal, "template references missing variable").
		WithContext("template", id).
		WithContext("key", key)
}

// Infrastructure errors

func IOError(operation, path string, cause error) *Error {
	return Wrap(cause, CategoryIO, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

func BuildFailed(node string, cause error) *Error {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("node", node)
}
