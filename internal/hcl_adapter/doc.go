// Package hcl_adapter reads job files written in HCL.
//
// HCL job files are the scriptable form of a job: attribute values are
// expressions evaluated with the variables given on the command line
// (`var.<name>`), previously declared locals (`local.<name>`) and a fixed
// function table, so a file can branch on its inputs:
//
//	locals {
//	  suite = var.quick == "1" ? "smoke" : "full"
//	}
//
//	log_dir = "logs/${local.suite}"
//
//	task "inspect_evals/gpqa_diamond" {
//	  epochs = var.quick == "1" ? 1 : 4
//	  model  = null
//	}
//
// `task` blocks are appended after any tasks declared through the `tasks`
// attribute. Attributes evaluating to null are kept as explicit nulls.
package hcl_adapter
