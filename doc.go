// Package toolman is a tool manager for LLM function calling: it registers Go
// functions as named tools, describes them in the function-calling wire format,
// validates model-issued arguments and invokes the function safely.
//
// # Overview
//
// A model emits tool calls as a name plus loosely typed arguments (usually decoded
// from JSON). This package turns such a call into a concrete Go function call:
// lookup → validate (against the same schema shown to the model) → fill defaults →
// invoke → Result plus a role "tool" Message ready to append to the conversation.
//
// Pipeline: Go function + argument struct → NewTool (inferred or explicit Schema) →
// Tool → Registry.Register → Registry.Execute → (Result, Message).
//
// # Key concepts
//
//   - Single source of truth: one Schema drives both the listing sent to the model
//     (Registry.Tools) and the validation of incoming arguments.
//   - Fail fast at setup: schema inference errors, invalid schemas and invalid tool
//     names are returned by NewTool / Register; an unknown tool name at execution
//     time returns ErrToolNotFound.
//   - Self-correction at run time: validation failures, handler errors and panics
//     never propagate. They come back in-band as {"error": "Error in tool '<name>': ..."}
//     so the model can see and fix its mistake.
//
// # Example
//
//	type WeatherArgs struct {
//	    Location string `json:"location" description:"City name"`
//	    Unit     string `json:"unit" default:"Celsius" enum:"Celsius,Fahrenheit"`
//	}
//	reg := toolman.NewRegistry()
//	err := toolman.RegisterFunc(reg, "get_current_temperature", "Gets the current temperature.",
//	    func(_ context.Context, a WeatherArgs) (map[string]string, error) {
//	        return map[string]string{"location": a.Location, "unit": a.Unit, "temperature": "72"}, nil
//	    })
//	if err != nil { ... }
//	res, msg, err := reg.Execute(ctx, toolman.ToolCall{
//	    ID: "call_1", Name: "get_current_temperature",
//	    Arguments: map[string]any{"location": "San Francisco"},
//	})
package toolman
