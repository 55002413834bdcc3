// Package validation checks request input.
//
// Struct tag validation runs go-playground/validator over request DTOs and
// reports failures as an INVALID_INPUT AppError with per-field details:
//
//	type addItemRequest struct {
//	    ID   int    `json:"id" validate:"required,gt=0"`
//	    Name string `json:"name" validate:"required,max=200"`
//	}
//	err := validation.Validate(req)
//
// The Validator type collects errors for values that are not structs, such
// as path parameters.
package validation
