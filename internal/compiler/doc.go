// Package compiler turns CUE recipe definitions into recipe.Spec values.
//
// A recipe is declared under the top-level "recipe" struct, keyed by slug:
//
//	recipe: "python-lover": {
//	    name:        "Python Lover"
//	    description: "People loving Python"
//	    image:       "python-lover.png"
//	    membership: {
//	        from: "users"
//	        id:   "id"
//	        where: [{field: "love_python", op: "=", value: true}]
//	    }
//	}
//
// CompileRecipe parses a single recipe value. Validate checks a compiled
// spec and reports every problem with a stable error code.
package compiler
