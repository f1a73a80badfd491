// Package classifier trains and applies the leaf health model.
//
// A model maps a 170-element color descriptor (see package features) to a
// binary label, Healthy (0) or Diseased (1). The baseline model is a random
// forest: 100 CART trees, each fit on a bootstrap sample of the training
// set, choosing among sqrt(170) random features at every split and scored
// by Gini impurity. Tree outputs are averaged and the majority wins; ties go
// to Healthy.
//
// # Training
//
// TrainAndSave implements the full training run:
//
//  1. LoadDataset reads <root>/healthy and <root>/diseased, extracting one
//     descriptor per decodable image. Undecodable files are logged, counted
//     and skipped.
//  2. Split shuffles the examples with a fixed seed and holds out 20%.
//  3. Fit trains the forest on the remaining 80%.
//  4. Accuracy on the held-out subset is reported. It is observational; the
//     model is persisted whatever its value.
//  5. Save writes the model to its artifact path, replacing any prior file.
//
// Given the same files and seed, training is fully reproducible, including
// when trees are fit concurrently.
//
// # Prediction
//
// Load reads an artifact back into a *Forest. The returned model is
// read-only and safe for concurrent use. Predict is a pure function of the
// descriptor.
package classifier
